package models

import "time"

// Resume is a reference resume used as scoring input. Resumes are seeded
// from TOML files on startup; there is no CRUD surface for them.
type Resume struct {
	ID     string `json:"id" toml:"id" badgerhold:"key"`
	UserID string `json:"user_id" toml:"user_id" badgerhold:"index"`
	Name   string `json:"name" toml:"name"`

	PersonalInfo   PersonalInfo     `json:"personal_info" toml:"personal_info"`
	TargetRole     string           `json:"target_role" toml:"target_role"`
	Summary        string           `json:"summary" toml:"summary"`
	Skills         []string         `json:"skills" toml:"skills"`
	WorkExperience []WorkExperience `json:"work_experience" toml:"work_experience"`
	Education      []Education      `json:"education" toml:"education"`
	Projects       []Project        `json:"projects,omitempty" toml:"projects"`
	Certifications []string         `json:"certifications,omitempty" toml:"certifications"`

	CreatedAt time.Time `json:"created_at" toml:"-"`
	UpdatedAt time.Time `json:"updated_at" toml:"-"`
}

type PersonalInfo struct {
	FullName string `json:"full_name" toml:"full_name"`
	Email    string `json:"email,omitempty" toml:"email"`
	Phone    string `json:"phone,omitempty" toml:"phone"`
	Location string `json:"location,omitempty" toml:"location"`
}

type WorkExperience struct {
	Title     string   `json:"title" toml:"title"`
	Company   string   `json:"company" toml:"company"`
	StartDate string   `json:"start_date,omitempty" toml:"start_date"`
	EndDate   string   `json:"end_date,omitempty" toml:"end_date"`
	Bullets   []string `json:"bullets,omitempty" toml:"bullets"`
}

type Education struct {
	Degree      string `json:"degree" toml:"degree"`
	Institution string `json:"institution" toml:"institution"`
	Year        string `json:"year,omitempty" toml:"year"`
}

type Project struct {
	Name        string `json:"name" toml:"name"`
	Description string `json:"description,omitempty" toml:"description"`
}

// ScoringSummary projects the resume to the compact document sent to the
// scoring prompt: name, target role, summary, skills, the three most recent
// roles, degrees and certifications. Keeps the prompt well under provider
// context limits regardless of resume size.
func (r *Resume) ScoringSummary() map[string]any {
	roles := r.WorkExperience
	if len(roles) > 3 {
		roles = roles[:3]
	}
	return map[string]any{
		"name":            r.PersonalInfo.FullName,
		"target_role":     r.TargetRole,
		"summary":         r.Summary,
		"skills":          r.Skills,
		"work_experience": roles,
		"education":       r.Education,
		"certifications":  r.Certifications,
	}
}
