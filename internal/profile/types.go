package profile

// Profile is the résumé record the site renders and the assistant answers
// from. Field order and JSON names follow the embedded data file.
type Profile struct {
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	Email        string          `json:"email"`
	LinkedIn     string          `json:"linkedin"`
	GitHub       string          `json:"github"`
	Location     string          `json:"location"`
	Summary      string          `json:"summary"`
	Experience   []Experience    `json:"experience"`
	Achievements []Achievement   `json:"achievements"`
	Education    []Education     `json:"education"`
	Skills       []SkillCategory `json:"skills"`
}

// Experience is one position in the work history. Entries are kept in the
// order they appear in the source data (newest first by convention).
type Experience struct {
	Role        string   `json:"role"`
	Company     string   `json:"company"`
	Period      string   `json:"period"`
	Location    string   `json:"location"`
	Description []string `json:"description"`
}

// Achievement is a highlighted accomplishment. Icon is a free-form tag
// (e.g. "building", "users") used only for decoration.
type Achievement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Period      string `json:"period"`
	Location    string `json:"location"`
}

type SkillCategory struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}
