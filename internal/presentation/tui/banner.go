package tui

import (
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`    ____  __                __             `,
	`   / __ \/ /_  ______ ___  / /_  ___  _____`,
	`  / /_/ / / / / / __ ` + "`" + `__ \/ __ \/ _ \/ ___/`,
	` / ____/ / /_/ / / / / / / /_/ /  __/ /    `,
	`/_/   /_/\__,_/_/ /_/ /_/_.___/\___/_/     `,
}

// Gradient from teal to indigo, one color per banner line.
var bannerColors = []string{"#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa", "#818cf8"}

// Banner renders the title art with the tagline, framed by dividers.
func (p *Printer) Banner() string {
	var b strings.Builder
	for i, line := range bannerLines {
		b.WriteString(termenv.String(line).Foreground(p.profile.Color(bannerColors[i])).String())
		b.WriteByte('\n')
	}
	b.WriteString("The CD/CI tool for everything\n")
	b.WriteString("Initiating...")
	return p.Divided(b.String())
}

// PrintBanner writes Banner to the output.
func (p *Printer) PrintBanner() {
	p.Println(p.Banner())
}
