package models

import "time"

type Post struct {
	ID        string
	SpaceID   string
	AuthorID  string
	Title     string
	Body      string
	CreatedAt time.Time
}

type PostView struct {
	ID            string
	SpaceID       string
	AuthorID      string
	AuthorName    string
	Title         string
	Body          string
	CreatedAt     time.Time
	ReactionCount int
}

type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

type CommentView struct {
	ID         string
	PostID     string
	AuthorID   string
	AuthorName string
	Body       string
	CreatedAt  time.Time
}
