package scraper

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/scout/internal/models"
)

// ResultCard is one posting extracted from a search results page. Fields the
// page did not expose are left empty; the caller substitutes "N/A".
type ResultCard struct {
	Title    string
	Company  string
	Location string
	Salary   string
	JobURL   string
}

// Selector sets for the target site. The markup shifts between deployments,
// so each field carries fallbacks tried in order.
var (
	cardSelectors = []string{
		`article[data-card-type="JobCard"]`,
		`[data-automation="normalJob"]`,
		`article[data-testid="job-card"]`,
	}
	titleSelectors = []string{
		`a[data-automation="jobTitle"]`,
		`[data-testid="job-card-title"]`,
		`h3 a`,
	}
	companySelectors = []string{
		`a[data-automation="jobCompany"]`,
		`[data-automation="jobCardCompanyLink"]`,
		`span[data-testid="company-name"]`,
	}
	locationSelectors = []string{
		`a[data-automation="jobLocation"]`,
		`[data-automation="jobCardLocationLink"]`,
		`span[data-testid="jobCardLocation"]`,
	}
	salarySelectors = []string{
		`span[data-automation="jobSalary"]`,
		`[data-testid="job-card-salary"]`,
	}
	descriptionSelectors = []string{
		`div[data-automation="jobAdDetails"]`,
		`[data-testid="jobAdDetails"]`,
		`section[aria-label="Job description"]`,
	}
	workTypeSelectors = []string{
		`span[data-automation="job-detail-work-type"]`,
		`[data-automation="jobWorkType"]`,
	}
)

// ParseResultCards extracts postings from a rendered search results page.
// Zero cards is not an error; the caller moves to the next title.
func ParseResultCards(html, baseURL string) ([]ResultCard, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var cards []ResultCard
	for _, cardSel := range cardSelectors {
		doc.Find(cardSel).Each(func(_ int, sel *goquery.Selection) {
			card := ResultCard{
				Title:    firstText(sel, titleSelectors),
				Company:  firstText(sel, companySelectors),
				Location: firstText(sel, locationSelectors),
				Salary:   firstText(sel, salarySelectors),
			}

			for _, titleSel := range titleSelectors {
				if href, ok := sel.Find(titleSel).First().Attr("href"); ok {
					card.JobURL = NormalizeJobURL(baseURL, href)
					break
				}
			}

			// A card without title and URL is markup noise
			if card.Title == "" && card.JobURL == "" {
				return
			}
			cards = append(cards, card)
		})

		if len(cards) > 0 {
			break
		}
	}

	return cards, nil
}

// JobDetail is the enrichment pulled from a posting's detail page
type JobDetail struct {
	Description string
	WorkType    string
}

// ParseJobDetail extracts the full description (as markdown) and work type
// from a rendered detail page
func ParseJobDetail(html string) (*JobDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	detail := &JobDetail{
		Description: models.FieldNotAvailable,
		WorkType:    models.FieldNotAvailable,
	}

	for _, sel := range descriptionSelectors {
		section := doc.Find(sel).First()
		if section.Length() == 0 {
			continue
		}
		sectionHTML, err := goquery.OuterHtml(section)
		if err != nil {
			continue
		}

		converter := md.NewConverter("", true, nil)
		markdown, err := converter.ConvertString(sectionHTML)
		if err != nil || strings.TrimSpace(markdown) == "" {
			// Fall back to plain text when conversion produces nothing
			markdown = strings.TrimSpace(section.Text())
		}
		if markdown != "" {
			detail.Description = markdown
			break
		}
	}

	if workType := firstText(doc.Selection, workTypeSelectors); workType != "" {
		detail.WorkType = NormalizeWorkType(workType)
	}

	return detail, nil
}

func firstText(sel *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		if text := strings.TrimSpace(sel.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// NormalizeWorkType maps the site's work type labels onto the canonical set
func NormalizeWorkType(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lowered, "full"):
		return "Full time"
	case strings.Contains(lowered, "part"):
		return "Part time"
	case strings.Contains(lowered, "casual"):
		return "Casual"
	case strings.Contains(lowered, "contract"):
		return "Contract"
	case strings.Contains(lowered, "temp"):
		return "Temporary"
	}
	if raw = strings.TrimSpace(raw); raw != "" {
		return raw
	}
	return models.FieldNotAvailable
}
