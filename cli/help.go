// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

const (
	defaultTermWidth = 80
	helpIndent       = "  "
	noSuchCommand    = "(Non-existent command.)"
)

var (
	cmdHeaderPattern = regexp.MustCompile(`^###\s+(\S+)`)
	mdLinkPattern    = regexp.MustCompile(`\[([^\]]+)\]\(#[a-z-]+\)`)
)

//go:embed README.md
var cliHelpFile string

// helpTopic is the help of one command, taken from its section of the README.
type helpTopic struct {
	summary string   // first sentence
	lines   []string // body, code blocks labelled and indented
}

// Help renders the console reference embedded from README.md.
type Help struct {
	termWidth uint
	topics    map[string]*helpTopic
}

func newHelp() Help {
	h := Help{
		termWidth: defaultTermWidth,
		topics:    parseHelp(cliHelpFile),
	}
	h.updateWidth()
	return h
}

func (help *Help) updateWidth() {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if width, _, err := term.GetSize(fd); err == nil && width > 20 {
		help.termWidth = uint(width)
	}
}

// parseHelp splits the README into one topic per '### <cmd>' section.
func parseHelp(text string) map[string]*helpTopic {
	topics := make(map[string]*helpTopic)
	var cur *helpTopic
	inCode := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRightFunc(line, func(r rune) bool { return r == ' ' || r == '\t' || r == '\r' })

		if m := cmdHeaderPattern.FindStringSubmatch(line); m != nil {
			cur = &helpTopic{}
			topics[m[1]] = cur
			inCode = false
			continue
		}
		if cur == nil || strings.HasPrefix(line, "#") {
			cur = nil
			continue
		}

		switch {
		case line == "```shell":
			cur.blank()
			cur.lines = append(cur.lines, "Usage:")
			inCode = true
		case line == "```bash":
			cur.blank()
			cur.lines = append(cur.lines, "Example:")
			inCode = true
		case line == "```":
			inCode = false
		case inCode:
			cur.lines = append(cur.lines, helpIndent+line)
		case len(line) == 0:
			cur.blank()
		default:
			line = mdLinkPattern.ReplaceAllString(strings.ReplaceAll(line, "`", ""), "$1")
			if len(cur.summary) == 0 {
				cur.summary = firstSentence(line)
			}
			cur.lines = append(cur.lines, line)
		}
	}
	return topics
}

// blank separates paragraphs by a single empty line.
func (t *helpTopic) blank() {
	if n := len(t.lines); n > 0 && t.lines[n-1] != "" {
		t.lines = append(t.lines, "")
	}
}

func firstSentence(s string) string {
	if idx := strings.Index(s, ". "); idx > 0 {
		return s[:idx+1]
	}
	return s
}

func (help *Help) commands() []string {
	cmds := make([]string, 0, len(help.topics))
	for c := range help.topics {
		cmds = append(cmds, c)
	}
	sort.Strings(cmds)
	return cmds
}

// outputGeneralHelp lists every command with its summary.
func (help *Help) outputGeneralHelp() string {
	help.updateWidth()
	var sb strings.Builder
	for _, c := range help.commands() {
		_, _ = fmt.Fprintf(&sb, "%-8s %s\n", c, help.topics[c].summary)
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

// outputCommandHelp shows the full help of one command.
func (help *Help) outputCommandHelp(command string) string {
	help.updateWidth()
	topic, ok := help.topics[command]
	if !ok {
		return command + "\n" + helpIndent + noSuchCommand + "\n"
	}

	var sb strings.Builder
	sb.WriteString(command + "\n")
	width := help.termWidth - uint(len(helpIndent))
	for _, line := range topic.lines {
		if len(line) == 0 {
			sb.WriteString("\n")
			continue
		}
		if strings.HasPrefix(line, helpIndent) {
			// code is not wrapped
			sb.WriteString(helpIndent + line + "\n")
			continue
		}
		for _, wrapped := range strings.Split(wordwrap.WrapString(line, width), "\n") {
			sb.WriteString(helpIndent + wrapped + "\n")
		}
	}
	return sb.String()
}
