package store

import "time"

// Category is the root of one subtree of the World.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Field is a schema slot shared by every Article of its Category.
type Field struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"categoryId"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Article belongs to exactly one Category.
type Article struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"categoryId"`
	Name       string    `json:"name"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ArticleMetadata is an Article together with its Category's name.
type ArticleMetadata struct {
	Article
	CategoryName string `json:"categoryName"`
}

// ArticleField is the value an Article holds for one Field of its Category.
// ID is the Field's id.
type ArticleField struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snippet is a named free-form note attached to an Article.
type Snippet struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConnectionRow is one directional connection row as stored.
type ConnectionRow struct {
	ID                      int64     `json:"id"`
	MainArticleID           int64     `json:"mainArticleId"`
	OtherArticleID          int64     `json:"otherArticleId"`
	OtherArticleRole        string    `json:"otherArticleRole"`
	ConnectionDescriptionID int64     `json:"connectionDescriptionId"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// Connection is the merged view of a connection pair as seen from the main
// article. MainArticleRole is read from the mirror row.
type Connection struct {
	ID               int64     `json:"id"`
	MainArticleID    int64     `json:"mainArticleId"`
	MainArticleRole  string    `json:"mainArticleRole"`
	OtherArticleID   int64     `json:"otherArticleId"`
	OtherArticleRole string    `json:"otherArticleRole"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ConnectionDetail is a Connection enriched with both article names.
type ConnectionDetail struct {
	Connection
	MainArticleName  string `json:"mainArticleName"`
	OtherArticleName string `json:"otherArticleName"`
}

// ConnectionListing is one outgoing connection of an article.
type ConnectionListing struct {
	ID               int64     `json:"id"`
	MainArticleID    int64     `json:"mainArticleId"`
	OtherArticleID   int64     `json:"otherArticleId"`
	OtherArticleName string    `json:"otherArticleName"`
	OtherArticleRole string    `json:"otherArticleRole"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CategoryArticles groups connection candidates by Category.
type CategoryArticles struct {
	CategoryID int64     `json:"categoryId"`
	Name       string    `json:"name"`
	Articles   []Article `json:"articles"`
}

// RowCounts holds the number of rows in every table of a World.
type RowCounts struct {
	Categories             int `json:"categories"`
	Fields                 int `json:"fields"`
	Articles               int `json:"articles"`
	FieldValues            int `json:"fieldValues"`
	Connections            int `json:"connections"`
	ConnectionDescriptions int `json:"connectionDescriptions"`
	Snippets               int `json:"snippets"`
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
