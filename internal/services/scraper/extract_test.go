package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scout/internal/models"
)

const searchResultsHTML = `
<html><body>
<article data-card-type="JobCard">
  <h3><a data-automation="jobTitle" href="/job/100?ref=search">Backend Engineer</a></h3>
  <a data-automation="jobCompany">Acme Pty Ltd</a>
  <a data-automation="jobLocation">Sydney NSW</a>
  <span data-automation="jobSalary">$150k - $170k</span>
</article>
<article data-card-type="JobCard">
  <h3><a data-automation="jobTitle" href="/job/101">Platform Engineer</a></h3>
  <a data-automation="jobCompany">Initech</a>
</article>
<article data-card-type="JobCard">
  <div>promoted content without title or link</div>
</article>
</body></html>`

func TestParseResultCards(t *testing.T) {
	cards, err := ParseResultCards(searchResultsHTML, "https://www.seek.com.au")
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "Backend Engineer", cards[0].Title)
	assert.Equal(t, "Acme Pty Ltd", cards[0].Company)
	assert.Equal(t, "Sydney NSW", cards[0].Location)
	assert.Equal(t, "$150k - $170k", cards[0].Salary)
	assert.Equal(t, "https://www.seek.com.au/job/100", cards[0].JobURL)

	// Missing fields stay empty; the caller substitutes placeholders
	assert.Equal(t, "Platform Engineer", cards[1].Title)
	assert.Empty(t, cards[1].Location)
	assert.Empty(t, cards[1].Salary)
}

func TestParseResultCards_FallbackSelectors(t *testing.T) {
	html := `
<html><body>
<article data-testid="job-card">
  <a data-testid="job-card-title" href="https://www.seek.com.au/job/200?pos=1">SRE</a>
</article>
</body></html>`

	cards, err := ParseResultCards(html, "https://www.seek.com.au")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "SRE", cards[0].Title)
	assert.Equal(t, "https://www.seek.com.au/job/200", cards[0].JobURL)
}

func TestParseResultCards_EmptyPage(t *testing.T) {
	cards, err := ParseResultCards("<html><body><p>No jobs found</p></body></html>", "https://www.seek.com.au")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestParseJobDetail(t *testing.T) {
	html := `
<html><body>
<div data-automation="jobAdDetails">
  <h2>About the role</h2>
  <p>Build and run distributed systems in Go.</p>
</div>
<span data-automation="job-detail-work-type">Full time</span>
</body></html>`

	detail, err := ParseJobDetail(html)
	require.NoError(t, err)
	assert.Contains(t, detail.Description, "About the role")
	assert.Contains(t, detail.Description, "distributed systems in Go")
	assert.Equal(t, "Full time", detail.WorkType)
}

func TestParseJobDetail_MissingSectionsDefaultToNA(t *testing.T) {
	detail, err := ParseJobDetail("<html><body><p>redirected</p></body></html>")
	require.NoError(t, err)
	assert.Equal(t, models.FieldNotAvailable, detail.Description)
	assert.Equal(t, models.FieldNotAvailable, detail.WorkType)
}

func TestNormalizeWorkType(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Full time", "Full time"},
		{"FULL-TIME", "Full time"},
		{"Part Time", "Part time"},
		{"casual", "Casual"},
		{"Contract/Temp", "Contract"},
		{"Temporary", "Temporary"},
		{"Volunteer", "Volunteer"},
		{"", models.FieldNotAvailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeWorkType(tt.raw), "raw=%q", tt.raw)
	}
}
