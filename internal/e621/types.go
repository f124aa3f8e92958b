package e621

import (
	"encoding/json"
	"strings"
	"time"
)

// Rating values used by the API.
const (
	RatingSafe         = "s"
	RatingQuestionable = "q"
	RatingExplicit     = "e"
)

// Post mirrors a single entry of /posts.json.
type Post struct {
	ID            int64         `json:"id"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
	File          PostFile      `json:"file"`
	Preview       PostPreview   `json:"preview"`
	Sample        PostSample    `json:"sample"`
	Score         PostScore     `json:"score"`
	Tags          PostTags      `json:"tags"`
	LockedTags    []string      `json:"locked_tags"`
	ChangeSeq     int64         `json:"change_seq"`
	Flags         PostFlags     `json:"flags"`
	Rating        string        `json:"rating"`
	FavCount      int           `json:"fav_count"`
	Sources       []string      `json:"sources"`
	Pools         []int64       `json:"pools"`
	Relationships Relationships `json:"relationships"`
	ApproverID    *int64        `json:"approver_id"`
	UploaderID    int64         `json:"uploader_id"`
	Description   string        `json:"description"`
	CommentCount  int           `json:"comment_count"`
	IsFavorited   bool          `json:"is_favorited"`
	Duration      *float64      `json:"duration"`
}

// PostFile describes the original upload.
type PostFile struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Ext    string `json:"ext"`
	Size   int64  `json:"size"`
	MD5    string `json:"md5"`
	URL    string `json:"url"`
}

// PostPreview describes the thumbnail.
type PostPreview struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// PostSample describes the downscaled sample, when one exists.
type PostSample struct {
	Has    bool   `json:"has"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// PostScore is the vote tally.
type PostScore struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Total int `json:"total"`
}

// PostTags groups tags by category.
type PostTags struct {
	General   []string `json:"general"`
	Artist    []string `json:"artist"`
	Copyright []string `json:"copyright"`
	Character []string `json:"character"`
	Species   []string `json:"species"`
	Invalid   []string `json:"invalid"`
	Meta      []string `json:"meta"`
	Lore      []string `json:"lore"`
}

// All returns every tag across categories in display order.
func (t PostTags) All() []string {
	out := make([]string, 0, len(t.Artist)+len(t.Copyright)+len(t.Character)+len(t.Species)+len(t.General)+len(t.Meta)+len(t.Lore)+len(t.Invalid))
	for _, group := range [][]string{t.Artist, t.Copyright, t.Character, t.Species, t.General, t.Meta, t.Lore, t.Invalid} {
		out = append(out, group...)
	}
	return out
}

// Categories returns (name, tags) pairs for non-empty categories.
func (t PostTags) Categories() []TagGroup {
	var out []TagGroup
	add := func(name string, tags []string) {
		if len(tags) > 0 {
			out = append(out, TagGroup{Name: name, Tags: tags})
		}
	}
	add("artist", t.Artist)
	add("copyright", t.Copyright)
	add("character", t.Character)
	add("species", t.Species)
	add("general", t.General)
	add("meta", t.Meta)
	add("lore", t.Lore)
	add("invalid", t.Invalid)
	return out
}

// TagGroup is a named set of tags.
type TagGroup struct {
	Name string
	Tags []string
}

// PostFlags holds moderation state.
type PostFlags struct {
	Pending      bool `json:"pending"`
	Flagged      bool `json:"flagged"`
	NoteLocked   bool `json:"note_locked"`
	StatusLocked bool `json:"status_locked"`
	RatingLocked bool `json:"rating_locked"`
	Deleted      bool `json:"deleted"`
}

// Relationships links a post to its parent and children.
type Relationships struct {
	ParentID          *int64  `json:"parent_id"`
	HasChildren       bool    `json:"has_children"`
	HasActiveChildren bool    `json:"has_active_children"`
	Children          []int64 `json:"children"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (p Post) ParsedCreatedAt() time.Time {
	return parseTime(p.CreatedAt)
}

// RatingLabel returns the long form of the rating.
func (p Post) RatingLabel() string {
	return RatingLabel(p.Rating)
}

// IsVideo reports whether the file is a video format.
func (p Post) IsVideo() bool {
	switch strings.ToLower(p.File.Ext) {
	case "webm", "mp4":
		return true
	}
	return false
}

// BestURL returns the file URL for the requested quality, falling back to
// whatever the API exposed. Quality is one of preview, sample, original.
func (p Post) BestURL(quality string) string {
	switch quality {
	case "preview":
		if p.Preview.URL != "" {
			return p.Preview.URL
		}
		fallthrough
	case "sample":
		if p.Sample.Has && p.Sample.URL != "" {
			return p.Sample.URL
		}
	}
	if p.File.URL != "" {
		return p.File.URL
	}
	if p.Sample.URL != "" {
		return p.Sample.URL
	}
	return p.Preview.URL
}

// valid drops records missing required fields.
func (p Post) valid() bool {
	return p.ID > 0 && p.Rating != ""
}

// RatingLabel maps a rating code to its name.
func RatingLabel(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case RatingSafe:
		return "safe"
	case RatingQuestionable:
		return "questionable"
	case RatingExplicit:
		return "explicit"
	}
	return "unknown"
}

// Pool mirrors /pools.json.
type Pool struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CreatorID   int64   `json:"creator_id"`
	CreatorName string  `json:"creator_name"`
	Description string  `json:"description"`
	IsActive    bool    `json:"is_active"`
	Category    string  `json:"category"`
	PostIDs     []int64 `json:"post_ids"`
	PostCount   int     `json:"post_count"`
}

func (p Pool) valid() bool { return p.ID > 0 }

// DisplayName replaces underscores the way the site does.
func (p Pool) DisplayName() string {
	return strings.ReplaceAll(p.Name, "_", " ")
}

// Tag category identifiers used by the API.
const (
	TagCategoryGeneral   = 0
	TagCategoryArtist    = 1
	TagCategoryCopyright = 3
	TagCategoryCharacter = 4
	TagCategorySpecies   = 5
	TagCategoryInvalid   = 6
	TagCategoryMeta      = 7
	TagCategoryLore      = 8
)

// TagCategoryName maps a numeric category to its name.
func TagCategoryName(category int) string {
	switch category {
	case TagCategoryArtist:
		return "artist"
	case TagCategoryCopyright:
		return "copyright"
	case TagCategoryCharacter:
		return "character"
	case TagCategorySpecies:
		return "species"
	case TagCategoryInvalid:
		return "invalid"
	case TagCategoryMeta:
		return "meta"
	case TagCategoryLore:
		return "lore"
	}
	return "general"
}

// Tag mirrors /tags.json.
type Tag struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PostCount   int    `json:"post_count"`
	RelatedTags string `json:"related_tags"`
	Category    int    `json:"category"`
	IsLocked    bool   `json:"is_locked"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (t Tag) valid() bool { return t.ID > 0 && t.Name != "" }

// TagAutocomplete mirrors /tags/autocomplete.json.
type TagAutocomplete struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	PostCount      int    `json:"post_count"`
	Category       int    `json:"category"`
	AntecedentName string `json:"antecedent_name"`
}

func (t TagAutocomplete) valid() bool { return t.Name != "" }

// User mirrors /users/<id>.json. Private fields are only present for the
// authenticated user.
type User struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Level           int    `json:"level"`
	LevelString     string `json:"level_string"`
	CreatedAt       string `json:"created_at"`
	PostUploadCount int    `json:"post_upload_count"`
	PostUpdateCount int    `json:"post_update_count"`
	NoteUpdateCount int    `json:"note_update_count"`
	IsBanned        bool   `json:"is_banned"`
	CanApprovePosts bool   `json:"can_approve_posts"`
	CanUploadFree   bool   `json:"can_upload_free"`
	BaseUploadLimit int    `json:"base_upload_limit"`
	AvatarID        *int64 `json:"avatar_id"`
	ProfileAbout    string `json:"profile_about"`
	FavoriteCount   int    `json:"favorite_count"`
	CommentCount    int    `json:"comment_count"`
	ForumPostCount  int    `json:"forum_post_count"`
	Blacklist       string `json:"blacklisted_tags"`
	HasMail         bool   `json:"has_mail"`
	FavoriteTags    string `json:"favorite_tags"`
	PerPage         int    `json:"per_page"`
}

// Comment mirrors /comments.json.
type Comment struct {
	ID            int64  `json:"id"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	PostID        int64  `json:"post_id"`
	CreatorID     int64  `json:"creator_id"`
	CreatorName   string `json:"creator_name"`
	Body          string `json:"body"`
	Score         int    `json:"score"`
	UpdaterID     int64  `json:"updater_id"`
	UpdaterName   string `json:"updater_name"`
	DoNotBumpPost bool   `json:"do_not_bump_post"`
	IsHidden      bool   `json:"is_hidden"`
	IsSticky      bool   `json:"is_sticky"`
	WarningType   string `json:"warning_type"`
}

func (c Comment) valid() bool { return c.ID > 0 }

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (c Comment) ParsedCreatedAt() time.Time {
	return parseTime(c.CreatedAt)
}

// Dmail mirrors /dmails.json.
type Dmail struct {
	ID        int64  `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	FromID    int64  `json:"from_id"`
	ToID      int64  `json:"to_id"`
	FromName  string `json:"from_name"`
	ToName    string `json:"to_name"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	IsRead    bool   `json:"is_read"`
	IsDeleted bool   `json:"is_deleted"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (d Dmail) valid() bool { return d.ID > 0 }

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (d Dmail) ParsedCreatedAt() time.Time {
	return parseTime(d.CreatedAt)
}

// PostSet mirrors /post_sets.json.
type PostSet struct {
	ID               int64   `json:"id"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
	CreatorID        int64   `json:"creator_id"`
	IsPublic         bool    `json:"is_public"`
	Name             string  `json:"name"`
	ShortName        string  `json:"shortname"`
	Description      string  `json:"description"`
	PostCount        int     `json:"post_count"`
	TransferOnDelete bool    `json:"transfer_on_delete"`
	PostIDs          []int64 `json:"post_ids"`
}

func (s PostSet) valid() bool { return s.ID > 0 }

// WikiPage mirrors /wiki_pages.json.
type WikiPage struct {
	ID          int64    `json:"id"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	CreatorID   int64    `json:"creator_id"`
	CreatorName string   `json:"creator_name"`
	IsLocked    bool     `json:"is_locked"`
	UpdaterID   int64    `json:"updater_id"`
	IsDeleted   bool     `json:"is_deleted"`
	OtherNames  []string `json:"other_names"`
	ParentName  string   `json:"parent"`
	CategoryID  *int     `json:"category_id"`
}

func (w WikiPage) valid() bool { return w.ID > 0 }

// DisplayTitle replaces underscores the way the site does.
func (w WikiPage) DisplayTitle() string {
	return strings.ReplaceAll(w.Title, "_", " ")
}

// Note mirrors /notes.json.
type Note struct {
	ID          int64  `json:"id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	CreatorID   int64  `json:"creator_id"`
	CreatorName string `json:"creator_name"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Version     int    `json:"version"`
	IsActive    bool   `json:"is_active"`
	PostID      int64  `json:"post_id"`
	Body        string `json:"body"`
}

func (n Note) valid() bool { return n.ID > 0 }

// VoteResult mirrors the response of a post vote.
type VoteResult struct {
	Score    int `json:"score"`
	Up       int `json:"up"`
	Down     int `json:"down"`
	OurScore int `json:"our_score"`
}

// decodeList handles the API's habit of answering list endpoints with a
// wrapped object, a bare array, or an empty object when nothing matched.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	trimmed := strings.TrimSpace(string(raw))
	out := make([]T, 0)
	if trimmed == "" || trimmed == "{}" || trimmed == "null" {
		return out, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	inner, ok := wrapped[key]
	if !ok {
		return out, nil
	}
	if err := json.Unmarshal(inner, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]T, 0)
	}
	return out, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-07:00"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
