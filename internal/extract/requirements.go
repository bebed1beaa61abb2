package extract

import (
	"errors"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// ErrNoRequirements is returned when a document yields zero requirement
// statements. The extractor never fabricates content for empty documents.
var ErrNoRequirements = errors.New("no requirements found in document")

// RequirementExtractor extracts atomic obligation statements from policy text
type RequirementExtractor struct {
	obligations []string
	markers     []string
}

// NewRequirementExtractor creates a new requirement extractor
func NewRequirementExtractor() *RequirementExtractor {
	return &RequirementExtractor{
		// Longest variants first so "must not" labels before "must"
		obligations: []string{
			"must not", "shall not", "may not", "is prohibited", "are prohibited",
			"is required", "are required", "is responsible for", "are responsible for",
			"must", "shall", "should", "will", "ensure", "enforce",
		},
		markers: []string{
			"for example", "for instance", "such as", "e.g.", "to illustrate",
		},
	}
}

// Extract extracts requirements from plain policy text. Sentences carrying no
// obligation marker are dropped; illustrative clauses are cut before
// normalization; compound obligations are split where each half stands alone.
func (e *RequirementExtractor) Extract(text string) ([]model.Requirement, error) {
	sentences := splitSentences(normalizeLines(text))

	var reqs []model.Requirement
	for i, sentence := range sentences {
		statement, stripped := e.cutExampleClause(sentence)
		if statement == "" {
			continue // Sentence opened with an example marker
		}

		keyword := e.matchObligation(statement)
		if keyword == "" {
			continue
		}

		for _, part := range e.splitCompound(statement) {
			reqs = append(reqs, model.Requirement{
				Text:            part,
				Source:          strings.TrimSpace(sentence),
				Sentence:        i,
				ExampleStripped: stripped,
				Heuristic:       "obligation:" + keyword,
			})
		}
	}

	reqs = dedupeRequirements(reqs)
	if len(reqs) == 0 {
		return nil, ErrNoRequirements
	}
	return reqs, nil
}

// ExtractHTML extracts requirements from an HTML document's visible text.
func (e *RequirementExtractor) ExtractHTML(htmlContent string) ([]model.Requirement, error) {
	text, err := VisibleText(htmlContent)
	if err != nil {
		return nil, err
	}
	return e.Extract(text)
}

// matchObligation returns the first obligation keyword the statement carries,
// or "" when the statement is not an obligation.
func (e *RequirementExtractor) matchObligation(statement string) string {
	lower := strings.ToLower(statement)
	for _, keyword := range e.obligations {
		if strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return ""
}

// cutExampleClause removes an example-marker-introduced clause from the
// sentence. Returns ("", true) when the whole sentence is illustrative.
// The clause runs from the nearest comma, semicolon, or parenthesis before
// the marker to the first one after it; punctuation belonging to the marker
// itself ("e.g.," carries dots and a comma) is never a clause boundary.
func (e *RequirementExtractor) cutExampleClause(sentence string) (string, bool) {
	lower := strings.ToLower(sentence)

	idx := -1
	matched := ""
	for _, marker := range e.markers {
		if pos := strings.Index(lower, marker); pos >= 0 && (idx < 0 || pos < idx) {
			idx = pos
			matched = marker
		}
	}
	if idx < 0 {
		return strings.TrimSpace(sentence), false
	}

	// A sentence that opens with a marker is illustrative throughout
	if strings.TrimSpace(lower[:idx]) == "" {
		return "", true
	}

	start := idx
	opened := false
	for i := idx - 1; i >= 0; i-- {
		c := sentence[i]
		if c == ',' || c == ';' {
			start = i
			break
		}
		if c == '(' {
			start = i
			opened = true
			break
		}
		if c != ' ' {
			break
		}
	}

	// The end scan starts past the marker and its trailing punctuation
	scan := idx + len(matched)
	for scan < len(sentence) && (sentence[scan] == ',' || sentence[scan] == ';' || sentence[scan] == ' ') {
		scan++
	}

	end := len(sentence)
	for i := scan; i < len(sentence); i++ {
		c := sentence[i]
		if c == ')' && opened {
			end = i + 1
			break
		}
		if (c == ',' || c == ';' || c == '.') && !opened {
			end = i
			break
		}
	}

	cleaned := strings.Join(strings.Fields(sentence[:start]+" "+sentence[end:]), " ")
	cleaned = strings.ReplaceAll(cleaned, " ,", ",")
	cleaned = strings.ReplaceAll(cleaned, " .", ".")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || cleaned == "." {
		return "", true
	}
	return ensureTerminator(cleaned), true
}

// splitCompound splits one coordinated sentence into independently verifiable
// statements. A sentence splits at a single "and"/"or" when both halves carry
// their own obligation, or when the right half is a coordinated object that a
// governing preposition can rebuild into a full statement. A half beginning
// with a bare pronoun blocks the split.
func (e *RequirementExtractor) splitCompound(statement string) []string {
	whole := []string{ensureTerminator(statement)}

	body := strings.TrimRight(strings.TrimSpace(statement), ".!?")
	lower := strings.ToLower(body)

	idx, conj := indexCoordination(lower)
	if idx < 0 {
		return whole
	}

	left := strings.TrimSpace(body[:idx])
	right := strings.TrimSpace(body[idx+len(conj):])
	if left == "" || right == "" {
		return whole
	}
	if e.matchObligation(left) == "" || startsWithPronoun(right) {
		return whole
	}

	// Two full clauses joined by the conjunction
	if e.matchObligation(right) != "" {
		return []string{ensureTerminator(left), ensureTerminator(capitalize(right))}
	}

	// Coordinated object: rebuild the right half from the governing preposition
	stem := stemThroughLastPreposition(left)
	if stem == "" {
		return whole
	}
	return []string{ensureTerminator(left), ensureTerminator(stem + " " + right)}
}

// indexCoordination finds the first " and "/" or " in the lowered sentence.
func indexCoordination(lower string) (int, string) {
	andIdx := strings.Index(lower, " and ")
	orIdx := strings.Index(lower, " or ")
	switch {
	case andIdx >= 0 && (orIdx < 0 || andIdx < orIdx):
		return andIdx, " and "
	case orIdx >= 0:
		return orIdx, " or "
	default:
		return -1, ""
	}
}

// stemThroughLastPreposition returns the clause up to and including its last
// preposition, or "" when the clause has none.
func stemThroughLastPreposition(clause string) string {
	prepositions := map[string]bool{
		"for": true, "to": true, "on": true, "of": true, "in": true,
		"across": true, "within": true, "over": true, "against": true,
	}

	words := strings.Fields(clause)
	last := -1
	for i, w := range words {
		if prepositions[strings.ToLower(w)] {
			last = i
		}
	}
	if last < 0 {
		return ""
	}
	return strings.Join(words[:last+1], " ")
}

func startsWithPronoun(clause string) bool {
	pronouns := []string{"it ", "they ", "this ", "these ", "those ", "that ", "them "}
	lower := strings.ToLower(clause)
	for _, p := range pronouns {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func ensureTerminator(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

// normalizeLines strips list bullets, numbering, and heading markers so they
// do not confuse sentence splitting once lines are joined.
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#")
		line = strings.TrimSpace(line)

		for _, prefix := range []string{"- ", "* ", "• ", "+ "} {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimSpace(line[len(prefix):])
				break
			}
		}

		// Numbered list items: "1. ", "2) ", "a) "
		if i := strings.IndexAny(line, ".)"); i > 0 && i <= 3 {
			prefix := line[:i]
			if isListOrdinal(prefix) {
				line = strings.TrimSpace(line[i+1:])
			}
		}

		if line != "" {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}

func isListOrdinal(s string) bool {
	if s == "" {
		return false
	}
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'z' {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitSentences splits text into sentences (simple heuristic)
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	const minLen, maxLen = 20, 600

	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on abbreviations
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				sentence := strings.TrimSpace(current.String())
				if len(sentence) >= minLen && len(sentence) <= maxLen {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= minLen && len(sentence) <= maxLen {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}

// dedupeRequirements removes duplicate statements
func dedupeRequirements(reqs []model.Requirement) []model.Requirement {
	seen := make(map[string]bool)
	var unique []model.Requirement

	for _, req := range reqs {
		key := strings.ToLower(strings.TrimSpace(req.Text))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, req)
		}
	}

	return unique
}
