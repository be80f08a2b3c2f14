package profile

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

//go:embed data/profile.json
var defaultData []byte

// Section names accepted by Store.Section.
const (
	SectionExperience   = "experience"
	SectionSkills       = "skills"
	SectionAchievements = "achievements"
	SectionEducation    = "education"
)

// ErrUnknownSection is returned by Section for names outside the list above.
var ErrUnknownSection = errors.New("unknown profile section")

// Store holds the profile loaded at startup. The record is never mutated
// after construction, so a Store is safe for concurrent use. Accessors hand
// out deep copies.
type Store struct {
	record Profile
}

// Load reads the profile from a JSON file at path. An empty path selects the
// record embedded in the binary.
func Load(path string) (*Store, error) {
	data := defaultData
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading profile %s: %w", path, err)
		}
		data = b
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return New(p), nil
}

// Default returns a Store over the embedded record. It panics if the
// embedded file is malformed, which is a build defect.
func Default() *Store {
	s, err := Load("")
	if err != nil {
		panic(err)
	}
	return s
}

// New wraps p without retaining any of the caller's slices.
func New(p Profile) *Store {
	return &Store{record: deepCopyProfile(&p)}
}

// Profile returns a copy of the record.
func (s *Store) Profile() Profile {
	return deepCopyProfile(&s.record)
}

// JSON serializes the full record. Every call produces a fresh encoding.
func (s *Store) JSON() ([]byte, error) {
	b, err := json.Marshal(s.record)
	if err != nil {
		return nil, fmt.Errorf("marshalling profile: %w", err)
	}
	return b, nil
}

// Section returns a copy of one list section of the record.
func (s *Store) Section(name string) (any, error) {
	p := s.Profile()
	switch name {
	case SectionExperience:
		return p.Experience, nil
	case SectionSkills:
		return p.Skills, nil
	case SectionAchievements:
		return p.Achievements, nil
	case SectionEducation:
		return p.Education, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, name)
}

func deepCopyProfile(p *Profile) Profile {
	if p == nil {
		return Profile{}
	}
	cp := *p

	if p.Experience != nil {
		cp.Experience = make([]Experience, len(p.Experience))
		for i, e := range p.Experience {
			cp.Experience[i] = e
			cp.Experience[i].Description = copyStrings(e.Description)
		}
	}
	if p.Achievements != nil {
		cp.Achievements = make([]Achievement, len(p.Achievements))
		copy(cp.Achievements, p.Achievements)
	}
	if p.Education != nil {
		cp.Education = make([]Education, len(p.Education))
		copy(cp.Education, p.Education)
	}
	if p.Skills != nil {
		cp.Skills = make([]SkillCategory, len(p.Skills))
		for i, c := range p.Skills {
			cp.Skills[i] = SkillCategory{Category: c.Category, Skills: copyStrings(c.Skills)}
		}
	}
	return cp
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
