package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestRequirementExtractor_BasicExtraction(t *testing.T) {
	extractor := NewRequirementExtractor()

	text := `
All production databases must be encrypted at rest.
Employees should complete security awareness training every year.
The weather in the data center region is usually mild.
`

	reqs, err := extractor.Extract(text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(reqs) != 2 {
		t.Fatalf("Expected 2 requirements, got %d: %+v", len(reqs), reqs)
	}

	if !strings.Contains(reqs[0].Text, "encrypted at rest") {
		t.Errorf("Expected first requirement about encryption, got %q", reqs[0].Text)
	}
	if reqs[0].Heuristic != "obligation:must" {
		t.Errorf("Expected heuristic 'obligation:must', got %q", reqs[0].Heuristic)
	}
	if reqs[1].Heuristic != "obligation:should" {
		t.Errorf("Expected heuristic 'obligation:should', got %q", reqs[1].Heuristic)
	}
}

func TestRequirementExtractor_ExampleMarkersExcluded(t *testing.T) {
	extractor := NewRequirementExtractor()

	text := `
Access to production systems must be restricted, such as database consoles and SSH sessions.
Privileged accounts (e.g., domain admins) must use hardware tokens.
For example, contractors may be granted temporary access during onboarding.
Backup media must be stored offsite, for instance in a bonded facility, and encrypted.
`

	reqs, err := extractor.Extract(text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	markers := []string{"for example", "such as", "e.g.", "for instance"}
	for _, req := range reqs {
		lower := strings.ToLower(req.Text)
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				t.Errorf("Requirement %q leaked example marker %q", req.Text, marker)
			}
		}
	}

	for _, req := range reqs {
		if strings.Contains(strings.ToLower(req.Text), "contractors") {
			t.Errorf("Example-opened sentence leaked into requirements: %q", req.Text)
		}
	}

	found := false
	for _, req := range reqs {
		if strings.Contains(req.Text, "hardware tokens") {
			found = true
			if !req.ExampleStripped {
				t.Errorf("Expected ExampleStripped=true for %q", req.Text)
			}
			if strings.Contains(req.Text, "domain admins") {
				t.Errorf("Parenthetical example survived: %q", req.Text)
			}
		}
	}
	if !found {
		t.Error("Expected a requirement about hardware tokens")
	}
}

func TestRequirementExtractor_BareAbbreviationMarker(t *testing.T) {
	extractor := NewRequirementExtractor()

	reqs, err := extractor.Extract("Access must be reviewed quarterly, e.g., by the security team, and revoked on termination.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 requirement, got %d: %+v", len(reqs), reqs)
	}

	want := "Access must be reviewed quarterly, and revoked on termination."
	if reqs[0].Text != want {
		t.Errorf("Expected %q, got %q", want, reqs[0].Text)
	}
	if !reqs[0].ExampleStripped {
		t.Error("Expected ExampleStripped=true after excising the abbreviation clause")
	}
	if strings.Contains(reqs[0].Text, "security team") {
		t.Errorf("Illustrative clause survived: %q", reqs[0].Text)
	}

	reqs, err = extractor.Extract("Keys must be rotated regularly, e.g. every ninety days, and stored in the vault.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 requirement, got %d: %+v", len(reqs), reqs)
	}
	if got := reqs[0].Text; got != "Keys must be rotated regularly, and stored in the vault." {
		t.Errorf("Expected the comma-free form excised cleanly, got %q", got)
	}
	if strings.Contains(reqs[0].Text, ".g") {
		t.Errorf("Marker residue left in requirement: %q", reqs[0].Text)
	}
}

func TestRequirementExtractor_CoordinatedObjectSplit(t *testing.T) {
	extractor := NewRequirementExtractor()

	text := "The organization must enforce MFA for all remote access and administrative accounts."

	reqs, err := extractor.Extract(text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(reqs) != 2 {
		t.Fatalf("Expected compound sentence to split into 2 requirements, got %d: %+v", len(reqs), reqs)
	}

	if !strings.Contains(reqs[0].Text, "remote access") {
		t.Errorf("Expected first split about remote access, got %q", reqs[0].Text)
	}
	if !strings.Contains(reqs[1].Text, "administrative accounts") {
		t.Errorf("Expected second split about administrative accounts, got %q", reqs[1].Text)
	}
	for _, req := range reqs {
		if !strings.Contains(req.Text, "must enforce MFA") {
			t.Errorf("Split requirement lost its obligation stem: %q", req.Text)
		}
		if req.Source != text {
			t.Errorf("Split requirement lost its source span: %q", req.Source)
		}
	}
}

func TestRequirementExtractor_TwoFullClauses(t *testing.T) {
	extractor := NewRequirementExtractor()

	text := "Administrators must review access logs weekly and auditors must retain review records."

	reqs, err := extractor.Extract(text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(reqs) != 2 {
		t.Fatalf("Expected 2 requirements from clause pair, got %d: %+v", len(reqs), reqs)
	}
	if !strings.HasPrefix(reqs[1].Text, "Auditors") {
		t.Errorf("Expected second clause capitalized, got %q", reqs[1].Text)
	}
}

func TestRequirementExtractor_PronounBlocksSplit(t *testing.T) {
	extractor := NewRequirementExtractor()

	text := "The platform must encrypt customer data and it should rotate encryption keys."

	reqs, err := extractor.Extract(text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(reqs) != 1 {
		t.Fatalf("Expected pronoun to block split, got %d requirements: %+v", len(reqs), reqs)
	}
}

func TestRequirementExtractor_EmptyDocument(t *testing.T) {
	extractor := NewRequirementExtractor()

	_, err := extractor.Extract("The cafeteria menu changes on Fridays during summer.")
	if !errors.Is(err, ErrNoRequirements) {
		t.Fatalf("Expected ErrNoRequirements, got %v", err)
	}

	_, err = extractor.Extract("")
	if !errors.Is(err, ErrNoRequirements) {
		t.Fatalf("Expected ErrNoRequirements for empty input, got %v", err)
	}
}

func TestRequirementExtractor_HTML(t *testing.T) {
	extractor := NewRequirementExtractor()

	htmlDoc := `
	<html>
	<head>
		<script>
			var note = "The build system must delete all temporary records.";
		</script>
	</head>
	<body>
		<p>Every employee must complete security training annually.</p>
		<p>The office kitchen is cleaned on weekends.</p>
	</body>
	</html>
	`

	reqs, err := extractor.ExtractHTML(htmlDoc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(reqs) != 1 {
		t.Fatalf("Expected 1 requirement from body text, got %d: %+v", len(reqs), reqs)
	}
	if strings.Contains(reqs[0].Text, "temporary records") {
		t.Errorf("Script content leaked into requirements: %q", reqs[0].Text)
	}
}

func TestRequirementExtractor_Dedupe(t *testing.T) {
	extractor := NewRequirementExtractor()

	text := `
All vendor contracts must include a security addendum.
All vendor contracts must include a security addendum.
`

	reqs, err := extractor.Extract(text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("Expected duplicates removed, got %d requirements", len(reqs))
	}
}

func TestLooksLikeHTML(t *testing.T) {
	if !LooksLikeHTML("<!DOCTYPE html><html><body>x</body></html>") {
		t.Error("Expected doctype document to look like HTML")
	}
	if LooksLikeHTML("All access must be logged and reviewed.") {
		t.Error("Expected plain text not to look like HTML")
	}
}
