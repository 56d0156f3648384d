package model

import (
    "math"
    "strings"
    "time"
)

// WordsPerMinute is the reading speed used for Post.ReadingTime.
const WordsPerMinute = 200

// Author is the blog identity of an account (one per account).
type Author struct {
    ID        uint64
    AccountID uint64
    Bio       string
    AvatarID  string
    AvatarURL string

    // Joined from accounts.
    Name  string
    Email string
}

// Category groups posts; Slug is unique.
type Category struct {
    ID   uint64
    Name string
    Slug string
}

// Tag labels posts; Slug is unique.
type Tag struct {
    ID   uint64
    Name string
    Slug string
}

// Post is a blog article.  Drafts are never shown to anonymous readers.
type Post struct {
    ID          uint64
    Title       string
    Slug        string
    Description string
    Content     string
    ImageID     string
    ImageURL    string
    AuthorID    uint64
    Date        time.Time
    Draft       bool
    CreatedAt   time.Time
    UpdatedAt   time.Time

    Author     Author
    Categories []Category
    Tags       []Tag
}

// ReadingTime estimates minutes to read the content, never less than one.
// Halves round to even.
func (p Post) ReadingTime() int {
    words := len(strings.Fields(p.Content))
    m := int(math.RoundToEven(float64(words) / WordsPerMinute))
    if m < 1 {
        return 1
    }
    return m
}
