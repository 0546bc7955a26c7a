// Package expr evaluates boolean expressions over named boolean variables.
//
// The grammar is deliberately small:
//
//	expr   = or
//	or     = and { ("or" | "||") and }
//	and    = unary { ("and" | "&&") unary }
//	unary  = ("not" | "!") unary | atom
//	atom   = IDENT | "true" | "false" | "(" expr ")"
//
// Keywords are lowercase; any other spelling such as "AND" or "True" is an
// identifier. Identifiers may contain letters, digits, '_' and '-'. Nothing but the declared variables is reachable from an
// expression.
package expr
