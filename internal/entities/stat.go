package entities

// StatCounter is a click counter keyed by "<releaseId>:<channel>".
// Counters are created lazily on first increment and are intentionally
// never cleaned up when a release is deleted: historical reporting may
// still want the numbers.
type StatCounter struct {
	Key   string `gorm:"primaryKey;size:255" json:"key"`
	Count int64  `json:"count"`
}

func (StatCounter) TableName() string {
	return "stats"
}
