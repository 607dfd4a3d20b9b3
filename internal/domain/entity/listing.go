package entity

import "time"

type Listing struct {
	ID          string   `json:"id" firestore:"id"`
	AgentID     string   `json:"agent_id" firestore:"agentId"`
	Title       string   `json:"title" firestore:"title"`
	Description string   `json:"description" firestore:"description"`
	Price       float64  `json:"price" firestore:"price"`
	Type        string   `json:"type" firestore:"type"`     // "vente", "location"
	Status      string   `json:"status" firestore:"status"` // "active", "pending", "sold", "archived"
	Ville       string   `json:"ville" firestore:"ville"`
	Quartier    string   `json:"quartier" firestore:"quartier"`
	Surface     float64  `json:"surface,omitempty" firestore:"surface,omitempty"`
	Rooms       int      `json:"rooms,omitempty" firestore:"rooms,omitempty"`
	Images      []string `json:"images" firestore:"images"`

	Views     int       `json:"views" firestore:"views"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ListingSummary is the compact view joined onto conversations and
// listing-card messages at read time.
type ListingSummary struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Ville     string  `json:"ville,omitempty"`
	Quartier  string  `json:"quartier,omitempty"`
}

// Summary reduces a listing to the fields messaging embeds.
func (l *Listing) Summary() *ListingSummary {
	s := &ListingSummary{
		ID:       l.ID,
		Title:    l.Title,
		Price:    l.Price,
		Ville:    l.Ville,
		Quartier: l.Quartier,
	}
	if len(l.Images) > 0 {
		s.Thumbnail = l.Images[0]
	}
	return s
}
