package models

// UnitProfile is the requester's own unit, read once per request
type UnitProfile struct {
	UnitID    string `bson:"unit_id" json:"unit_id"`
	Address   string `bson:"address" json:"address"`
	HouseType string `bson:"house_type" json:"house_type"`
}

// Drawing is a resolved unit drawing surfaced alongside an answer
type Drawing struct {
	FileName    string `bson:"file_name" json:"file_name"`
	DrawingType string `bson:"drawing_type" json:"drawing_type"` // "floor_plan" or "elevation"
	Title       string `bson:"title,omitempty" json:"title,omitempty"`
	URL         string `bson:"url,omitempty" json:"url,omitempty"`
}

// DrawingResolution is the outcome of a drawing lookup for a unit and topic
type DrawingResolution struct {
	Found       bool     `json:"found"`
	Drawing     *Drawing `json:"drawing,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}
