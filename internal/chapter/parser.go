package chapter

import (
	"regexp"
	"strconv"
	"strings"
)

var imageToken = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]*)\)`)

// Parse parses a markdown-shaped chapter source: one `# Title`, `## Section`
// headings, prose, and `![caption](path)` image tokens whose path base is
// the figure name. Returns MalformedChapterError on structural violations.
func Parse(src []byte) (*Chapter, error) {
	return ParseNamed("", src)
}

// ParseNamed is Parse with a source path for error locations.
func ParseNamed(srcPath string, src []byte) (*Chapter, error) {
	fail := func(line int, reason string) (*Chapter, error) {
		return nil, &MalformedChapterError{Path: srcPath, Line: line, Reason: reason}
	}

	ch := &Chapter{}
	seen := make(map[string]int) // figure name -> line first seen
	var cur *Section

	flush := func() {
		if cur != nil {
			cur.Body = strings.TrimSpace(cur.Body)
			ch.Sections = append(ch.Sections, *cur)
			cur = nil
		}
	}

	lines := strings.Split(string(src), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "# ") || trimmed == "#":
			if ch.Title != "" {
				return fail(lineNo, "duplicate chapter title")
			}
			if len(ch.Sections) > 0 || cur != nil {
				return fail(lineNo, "chapter title after section content")
			}
			title := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			if title == "" {
				return fail(lineNo, "empty chapter title")
			}
			ch.Title = title

		case strings.HasPrefix(trimmed, "## ") || trimmed == "##":
			if ch.Title == "" {
				return fail(lineNo, "section heading before chapter title")
			}
			heading := strings.TrimSpace(strings.TrimPrefix(trimmed, "##"))
			if heading == "" {
				return fail(lineNo, "empty section heading")
			}
			flush()
			cur = &Section{Heading: heading}

		case strings.HasPrefix(trimmed, "#"):
			// Deeper headings are only valid inside a section, where they
			// read as emphasized prose.
			if cur == nil {
				return fail(lineNo, "heading out of hierarchy: expected # title or ## section")
			}
			cur.Body += line + "\n"

		default:
			refs := imageToken.FindAllStringSubmatch(trimmed, -1)
			for _, m := range refs {
				caption, imgPath := m[1], m[2]
				name := figureNameFromPath(imgPath)
				if name == "" {
					return fail(lineNo, "image reference with no resolvable figure name")
				}
				if cur == nil {
					return fail(lineNo, "figure reference outside any section")
				}
				if first, dup := seen[name]; dup {
					return fail(lineNo, "figure "+name+" already referenced on line "+strconv.Itoa(first))
				}
				seen[name] = lineNo
				cur.FigureRefs = append(cur.FigureRefs, FigureRef{Name: name, Caption: caption})
			}

			prose := strings.TrimSpace(imageToken.ReplaceAllString(trimmed, ""))
			if prose == "" {
				if cur != nil && trimmed == "" {
					cur.Body += "\n"
				}
				continue
			}
			if ch.Title == "" {
				return fail(lineNo, "prose before chapter title")
			}
			if cur == nil {
				return fail(lineNo, "prose outside any section")
			}
			cur.Body += prose + "\n"
		}
	}
	flush()

	if ch.Title == "" {
		return fail(1, "missing chapter title")
	}
	return ch, nil
}
