package expr

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenTrue
	tokenFalse
	tokenAnd    // and, &&
	tokenOr     // or, ||
	tokenNot    // not, !
	tokenLParen // (
	tokenRParen // )
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "end of expression"
	case tokenIdent:
		return "identifier"
	case tokenTrue, tokenFalse:
		return "literal"
	case tokenAnd:
		return "'and'"
	case tokenOr:
		return "'or'"
	case tokenNot:
		return "'not'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	}
	return "unknown"
}

type token struct {
	typ   tokenType
	value string
	pos   int
}

type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) peekN(n int) string {
	end := min(l.pos+n, len(l.input))
	return l.input[l.pos:end]
}

func (l *lexer) nextToken() (token, error) {
	l.skipWhitespace()
	start := l.pos

	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: start}, nil
	}

	switch l.peekN(2) {
	case "&&":
		l.pos += 2
		return token{typ: tokenAnd, value: "&&", pos: start}, nil
	case "||":
		l.pos += 2
		return token{typ: tokenOr, value: "||", pos: start}, nil
	}

	ch := l.input[l.pos]
	switch ch {
	case '!':
		l.pos++
		return token{typ: tokenNot, value: "!", pos: start}, nil
	case '(':
		l.pos++
		return token{typ: tokenLParen, value: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{typ: tokenRParen, value: ")", pos: start}, nil
	}

	if !isIdentChar(ch) {
		return token{}, &SyntaxError{Pos: start, Msg: "unexpected character " + quoteByte(ch)}
	}

	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	word := l.input[start:l.pos]

	switch word {
	case "and":
		return token{typ: tokenAnd, value: word, pos: start}, nil
	case "or":
		return token{typ: tokenOr, value: word, pos: start}, nil
	case "not":
		return token{typ: tokenNot, value: word, pos: start}, nil
	case "true":
		return token{typ: tokenTrue, value: word, pos: start}, nil
	case "false":
		return token{typ: tokenFalse, value: word, pos: start}, nil
	}
	return token{typ: tokenIdent, value: word, pos: start}, nil
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch == '-' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

func quoteByte(ch byte) string {
	return "'" + string(rune(ch)) + "'"
}
