package domain

import "time"

// Chapter is the slice of the content catalog the settlement core reads:
// enough to resolve the author and the authoritative unlock price.
type Chapter struct {
	ID        int64     `db:"id" json:"id"`
	SeriesID  int64     `db:"series_id" json:"series_id"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	Title     string    `db:"title" json:"title"`
	IsPremium bool      `db:"is_premium" json:"is_premium"`
	CoinPrice int64     `db:"coin_price" json:"coin_price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
