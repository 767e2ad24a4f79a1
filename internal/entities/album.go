package entities

// Album is a catalog album. IDs are slugs and globally unique.
type Album struct {
	ID     string `gorm:"primaryKey;size:255" json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   string `json:"year"`
}

func (Album) TableName() string {
	return "albums"
}
