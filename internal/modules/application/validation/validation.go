// Package validation holds the completeness rules an application must pass
// before it leaves draft. Everything here is pure.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/pkg/apperror"
)

type Step int

const (
	StepPersonal Step = iota
	StepAcademic
	StepEssay
	StepDocuments
)

var Steps = []Step{StepPersonal, StepAcademic, StepEssay, StepDocuments}

const (
	MinEssayWords = 300

	MaxDocumentBytes int64 = 5 * 1024 * 1024
	MaxPhotoBytes    int64 = 2 * 1024 * 1024
)

var youtubePattern = regexp.MustCompile(`(?i)^(https?://)?(www\.)?(youtube\.com/(watch\?v=|embed/|v/)|youtu\.be/)[\w-]+`)

// Fields is the applicant-editable part of an application.
type Fields struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Nationality string `json:"nationality"`

	University  string `json:"university"`
	Program     string `json:"program"`
	YearOfStudy string `json:"year_of_study"`
	GPA         string `json:"gpa"`

	Essay    string `json:"essay"`
	VideoURL string `json:"video_url"`

	CVURL             string `json:"cv_url"`
	RecommendationURL string `json:"recommendation_url"`
	PhotoURL          string `json:"photo_url"`
}

func FieldsOf(app *entity.Application) Fields {
	return Fields{
		FullName:          app.FullName,
		DateOfBirth:       app.DateOfBirth,
		Phone:             app.Phone,
		Address:           app.Address,
		Nationality:       app.Nationality,
		University:        app.University,
		Program:           app.Program,
		YearOfStudy:       app.YearOfStudy,
		GPA:               app.GPA,
		Essay:             app.Essay,
		VideoURL:          app.VideoURL,
		CVURL:             app.CVURL,
		RecommendationURL: app.RecommendationURL,
		PhotoURL:          app.PhotoURL,
	}
}

// ApplyTo copies the fields onto the application record.
func (f Fields) ApplyTo(app *entity.Application) {
	app.FullName = f.FullName
	app.DateOfBirth = f.DateOfBirth
	app.Phone = f.Phone
	app.Address = f.Address
	app.Nationality = f.Nationality
	app.University = f.University
	app.Program = f.Program
	app.YearOfStudy = f.YearOfStudy
	app.GPA = f.GPA
	app.Essay = f.Essay
	app.VideoURL = f.VideoURL
	app.CVURL = f.CVURL
	app.RecommendationURL = f.RecommendationURL
	app.PhotoURL = f.PhotoURL
}

func ParseStep(n int) (Step, bool) {
	if n < int(StepPersonal) || n > int(StepDocuments) {
		return 0, false
	}
	return Step(n), true
}

// ValidateStep returns field -> message for one group. An empty map means valid.
func ValidateStep(step Step, f Fields) map[string]string {
	errs := map[string]string{}

	switch step {
	case StepPersonal:
		required(errs, "full_name", f.FullName, "Full name is required")
		required(errs, "date_of_birth", f.DateOfBirth, "Date of birth is required")
		required(errs, "phone", f.Phone, "Phone number is required")
		required(errs, "address", f.Address, "Address is required")
		required(errs, "nationality", f.Nationality, "Nationality is required")
	case StepAcademic:
		required(errs, "university", f.University, "University is required")
		required(errs, "program", f.Program, "Program of study is required")
		required(errs, "year_of_study", f.YearOfStudy, "Year of study is required")
		required(errs, "gpa", f.GPA, "GPA or grade is required")
	case StepEssay:
		if n := CountWords(f.Essay); n < MinEssayWords {
			errs["essay"] = fmt.Sprintf("Essay must be at least %d words (currently %d)", MinEssayWords, n)
		}
		video := strings.TrimSpace(f.VideoURL)
		if video == "" {
			errs["video_url"] = "YouTube video link is required"
		} else if !IsYouTubeURL(video) {
			errs["video_url"] = "Please enter a valid YouTube link (youtube.com or youtu.be)"
		}
	case StepDocuments:
		required(errs, "cv_url", f.CVURL, "CV / resume is required")
		required(errs, "recommendation_url", f.RecommendationURL, "Recommendation letter is required")
		required(errs, "photo_url", f.PhotoURL, "Passport photo is required")
	}

	return errs
}

// ValidateForSubmit is the union of every step.
func ValidateForSubmit(f Fields) map[string]string {
	errs := map[string]string{}
	for _, step := range Steps {
		for k, v := range ValidateStep(step, f) {
			errs[k] = v
		}
	}
	return errs
}

func CountWords(s string) int {
	return len(strings.Fields(s))
}

func IsYouTubeURL(s string) bool {
	return youtubePattern.MatchString(s)
}

// CheckFileSize enforces the upload limits per document category.
func CheckFileSize(category string, size int64) error {
	limit := MaxDocumentBytes
	if category == entity.DocumentPhoto {
		limit = MaxPhotoBytes
	}
	if size > limit {
		return apperror.NewValidationError(map[string]string{
			"file": fmt.Sprintf("file too large: max %dMB", limit/(1024*1024)),
		})
	}
	return nil
}

func required(errs map[string]string, field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = msg
	}
}
