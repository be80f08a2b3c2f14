package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_EmbeddedRecord(t *testing.T) {
	s := Default()
	p := s.Profile()

	if p.Name != "Zadiki Ochola Hassan" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.Location != "Nairobi, Kenya" {
		t.Errorf("Location = %q", p.Location)
	}
	if len(p.Experience) != 4 {
		t.Fatalf("got %d experience entries, want 4", len(p.Experience))
	}
	if p.Experience[0].Role != "Senior Backend Engineer" {
		t.Errorf("Experience[0].Role = %q", p.Experience[0].Role)
	}
	if len(p.Achievements) != 3 {
		t.Errorf("got %d achievements, want 3", len(p.Achievements))
	}
	if len(p.Education) != 1 {
		t.Errorf("got %d education entries, want 1", len(p.Education))
	}
	if len(p.Skills) != 6 {
		t.Errorf("got %d skill categories, want 6", len(p.Skills))
	}
}

func TestProfile_ReturnsCopy(t *testing.T) {
	s := Default()

	p := s.Profile()
	p.Name = "changed"
	p.Experience[0].Description[0] = "changed"
	p.Skills[0].Skills[0] = "changed"
	p.Achievements = nil

	fresh := s.Profile()
	if fresh.Name == "changed" {
		t.Error("Name mutation leaked into store")
	}
	if fresh.Experience[0].Description[0] == "changed" {
		t.Error("description mutation leaked into store")
	}
	if fresh.Skills[0].Skills[0] == "changed" {
		t.Error("skills mutation leaked into store")
	}
	if len(fresh.Achievements) != 3 {
		t.Error("achievements slice mutation leaked into store")
	}
}

func TestNew_DoesNotAliasInput(t *testing.T) {
	in := Profile{Name: "A", Skills: []SkillCategory{{Category: "Go", Skills: []string{"chi"}}}}
	s := New(in)
	in.Skills[0].Skills[0] = "gin"

	if got := s.Profile().Skills[0].Skills[0]; got != "chi" {
		t.Errorf("skill = %q, want chi", got)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	content := `{"name":"Ada","title":"Engineer","achievements":[{"title":"t","description":"d","icon":"rocket"}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := s.Profile()
	if p.Name != "Ada" || p.Title != "Engineer" {
		t.Errorf("got %q / %q", p.Name, p.Title)
	}
	if p.Achievements[0].Icon != "rocket" {
		t.Errorf("icon = %q, want rocket", p.Achievements[0].Icon)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestJSON_RoundTripsFullRecord(t *testing.T) {
	s := Default()
	b, err := s.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded Profile
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if decoded.Email != "zadikiochola@gmail.com" {
		t.Errorf("Email = %q", decoded.Email)
	}
	if len(decoded.Experience) != len(s.Profile().Experience) {
		t.Error("experience lost in serialization")
	}
}

func TestSection(t *testing.T) {
	s := Default()

	tests := []struct {
		name string
		want int
	}{
		{SectionExperience, 4},
		{SectionSkills, 6},
		{SectionAchievements, 3},
		{SectionEducation, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.Section(tt.name)
			if err != nil {
				t.Fatalf("Section: %v", err)
			}
			b, _ := json.Marshal(v)
			var items []json.RawMessage
			if err := json.Unmarshal(b, &items); err != nil {
				t.Fatalf("section is not a list: %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("got %d items, want %d", len(items), tt.want)
			}
		})
	}

	if _, err := s.Section("hobbies"); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("err = %v, want ErrUnknownSection", err)
	}
}
