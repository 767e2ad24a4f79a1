package entities

// Platform is a streaming platform link shown for a release.
type Platform struct {
	Title string `json:"title"`
	Icon  string `json:"icon"`
	Link  string `json:"link"`
}

// Release is a single track in the catalog.
//
// SourceSpotifyTrackID is a pointer so that releases imported by hand
// (no Spotify origin) store NULL rather than "": the unique index on
// the column must only apply to rows that actually carry a track id.
//
// Badge is derived from ReleaseDate on every read and is never stored.
// IsUpcoming is both an input (a dateless release can be flagged
// upcoming by the editor) and recomputed for dated releases.
type Release struct {
	ID           string     `gorm:"primaryKey;size:255" json:"id"`
	AlbumID      string     `gorm:"index;size:255" json:"albumId"`
	Title        string     `json:"title"`
	Artist       string     `json:"artist"`
	Year         string     `json:"year"`
	ReleaseDate  string     `json:"releaseDate"`
	Cover        string     `json:"cover"`
	PreviewAudio string     `json:"previewAudio"`
	YouTube      string     `json:"youtube"`
	Platforms    []Platform `gorm:"serializer:json" json:"platforms"`

	SourceSpotifyTrackID   *string `gorm:"uniqueIndex;size:64" json:"sourceSpotifyTrackId,omitempty"`
	SourceSpotifyAlbumID   string  `json:"sourceSpotifyAlbumId,omitempty"`
	SourceSpotifyAlbumName string  `json:"sourceSpotifyAlbumName,omitempty"`

	IsUpcoming bool   `json:"isUpcoming"`
	Badge      string `gorm:"-" json:"badge"`
}

func (Release) TableName() string {
	return "releases"
}

// SpotifyTrackID returns the source track id, or "" when the release
// has no Spotify origin.
func (r Release) SpotifyTrackID() string {
	if r.SourceSpotifyTrackID == nil {
		return ""
	}
	return *r.SourceSpotifyTrackID
}
