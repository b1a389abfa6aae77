package validation

import (
	"errors"
	"strings"
	"testing"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/pkg/apperror"
)

func essayOf(words int) string {
	return strings.TrimSpace(strings.Repeat("word ", words))
}

func completeFields() Fields {
	return Fields{
		FullName:          "Amina Diallo",
		DateOfBirth:       "2003-04-12",
		Phone:             "+221 77 000 0000",
		Address:           "12 Rue Carnot, Dakar",
		Nationality:       "Senegalese",
		University:        "Université Cheikh Anta Diop",
		Program:           "Computer Science",
		YearOfStudy:       "3",
		GPA:               "3.7",
		Essay:             essayOf(300),
		VideoURL:          "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		CVURL:             "u1/cv/1.pdf",
		RecommendationURL: "u1/recommendation/1.pdf",
		PhotoURL:          "u1/photo/1.jpg",
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"one", 1},
		{"  one   two\nthree\tfour  ", 4},
	}
	for _, tt := range tests {
		if got := CountWords(tt.in); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEssayBoundary(t *testing.T) {
	f := completeFields()

	f.Essay = essayOf(299)
	errs := ValidateStep(StepEssay, f)
	if msg, ok := errs["essay"]; !ok || !strings.Contains(msg, "currently 299") {
		t.Fatalf("299 words should fail with count, got %v", errs)
	}

	f.Essay = essayOf(300)
	if errs := ValidateStep(StepEssay, f); len(errs) != 0 {
		t.Fatalf("300 words should pass, got %v", errs)
	}
}

func TestIsYouTubeURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://youtube.com/watch?v=abc_123",
		"www.youtube.com/embed/dQw4w9WgXcQ",
		"youtube.com/v/dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"youtu.be/a-b",
		"HTTPS://WWW.YOUTUBE.COM/watch?v=X",
	}
	invalid := []string{
		"",
		"https://vimeo.com/123",
		"https://www.youtube.com/",
		"https://www.youtube.com/channel/UC123",
		"https://youtu.be/",
		"ftp://youtu.be/abc",
	}

	for _, u := range valid {
		if !IsYouTubeURL(u) {
			t.Errorf("expected %q to be accepted", u)
		}
	}
	for _, u := range invalid {
		if IsYouTubeURL(u) {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name   string
		step   Step
		mutate func(*Fields)
		want   []string
	}{
		{"personal ok", StepPersonal, func(*Fields) {}, nil},
		{"personal blanks", StepPersonal, func(f *Fields) {
			f.FullName = "   "
			f.Phone = ""
		}, []string{"full_name", "phone"}},
		{"academic gpa", StepAcademic, func(f *Fields) { f.GPA = "" }, []string{"gpa"}},
		{"essay and vimeo", StepEssay, func(f *Fields) {
			f.Essay = essayOf(250)
			f.VideoURL = "https://vimeo.com/123"
		}, []string{"essay", "video_url"}},
		{"missing video", StepEssay, func(f *Fields) { f.VideoURL = " " }, []string{"video_url"}},
		{"documents", StepDocuments, func(f *Fields) {
			f.CVURL = ""
			f.PhotoURL = ""
		}, []string{"cv_url", "photo_url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := completeFields()
			tt.mutate(&f)
			errs := ValidateStep(tt.step, f)
			if len(errs) != len(tt.want) {
				t.Fatalf("got %v, want keys %v", errs, tt.want)
			}
			for _, k := range tt.want {
				if _, ok := errs[k]; !ok {
					t.Errorf("missing error for %s in %v", k, errs)
				}
			}
		})
	}
}

func TestValidateStepDoesNotTouchOtherGroups(t *testing.T) {
	errs := ValidateStep(StepAcademic, Fields{University: "x", Program: "y", YearOfStudy: "1", GPA: "4"})
	if len(errs) != 0 {
		t.Fatalf("academic step should ignore other groups, got %v", errs)
	}
}

func TestValidateForSubmitIsUnion(t *testing.T) {
	if errs := ValidateForSubmit(completeFields()); len(errs) != 0 {
		t.Fatalf("complete application should pass, got %v", errs)
	}

	errs := ValidateForSubmit(Fields{})
	total := 0
	for _, step := range Steps {
		total += len(ValidateStep(step, Fields{}))
	}
	if len(errs) != total {
		t.Fatalf("union has %d entries, want %d", len(errs), total)
	}
}

func TestParseStep(t *testing.T) {
	if _, ok := ParseStep(4); ok {
		t.Fatal("step 4 should be out of range")
	}
	if s, ok := ParseStep(2); !ok || s != StepEssay {
		t.Fatalf("ParseStep(2) = %v, %v", s, ok)
	}
}

func TestCheckFileSize(t *testing.T) {
	tests := []struct {
		category string
		size     int64
		wantErr  string
	}{
		{entity.DocumentCV, MaxDocumentBytes, ""},
		{entity.DocumentCV, MaxDocumentBytes + 1, "max 5MB"},
		{entity.DocumentRecommendation, 3 * 1024 * 1024, ""},
		{entity.DocumentPhoto, MaxPhotoBytes, ""},
		{entity.DocumentPhoto, MaxPhotoBytes + 1, "max 2MB"},
	}

	for _, tt := range tests {
		err := CheckFileSize(tt.category, tt.size)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("%s/%d: unexpected error %v", tt.category, tt.size, err)
			}
			continue
		}
		var verr *apperror.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s/%d: expected ValidationError, got %v", tt.category, tt.size, err)
		}
		if !strings.Contains(verr.Fields["file"], tt.wantErr) {
			t.Errorf("%s/%d: message %q should contain %q", tt.category, tt.size, verr.Fields["file"], tt.wantErr)
		}
	}
}
