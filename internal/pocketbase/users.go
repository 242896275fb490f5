package pocketbase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/matchning/internal/matching"
)

// User is a record of the users auth collection.
type User struct {
	ID             string      `json:"id"`
	CollectionID   string      `json:"collectionId"`
	CollectionName string      `json:"collectionName"`
	Email          string      `json:"email"`
	FullName       string      `json:"fullName"`
	Bio            string      `json:"bio"`
	Age            int         `json:"age"`
	Gender         string      `json:"gender"`
	TxtFiles       []string    `json:"txtFiles"`
	FileJSON       []FileEntry `json:"fileJSON"`
	Created        string      `json:"created"`
	Updated        string      `json:"updated"`
}

// FileEntry is the text content of one uploaded qualification file.
type FileEntry struct {
	FileName   string    `json:"fileName"`
	Content    string    `json:"content"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// NewUser is a sign-up request.
type NewUser struct {
	Email    string
	Password string
	FullName string
}

// Profile holds the editable profile fields. Nil fields are left untouched.
type Profile struct {
	Bio    *string
	Age    *int
	Gender *string
}

func (p Profile) payload() map[string]any {
	payload := make(map[string]any, 3)
	if p.Bio != nil {
		payload["bio"] = *p.Bio
	}
	if p.Age != nil {
		payload["age"] = *p.Age
	}
	if p.Gender != nil {
		payload["gender"] = *p.Gender
	}
	return payload
}

type authResponse struct {
	Token  string         `json:"token"`
	Record map[string]any `json:"record"`
}

// QualificationText joins the content of every uploaded file.
func (u *User) QualificationText() string {
	if u == nil {
		return ""
	}

	parts := make([]string, 0, len(u.FileJSON))
	for _, entry := range u.FileJSON {
		parts = append(parts, entry.Content)
	}

	return matching.JoinQualifications(parts...)
}

// ListUsers returns every record of the collection.
func (c *Client) ListUsers() ([]*User, error) {
	q := url.Values{}
	q.Set("perPage", strconv.Itoa(c.perPage()))

	items, err := c.GetItems(c.recordsURL(), q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var users []*User
	if err := decode(items, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	c.logger.Debug("listed users", zap.Int("count", len(users)))

	return users, nil
}

func (c *Client) GetUser(id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("user id is required")
	}

	var raw map[string]any
	if err := c.sendJSON("GET", c.recordURL(id), nil, &raw); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	return decodeUser(raw)
}

// AuthWithPassword logs in with the stock PocketBase password flow and keeps the issued token.
func (c *Client) AuthWithPassword(identity, password string) (*User, error) {
	if strings.TrimSpace(identity) == "" || password == "" {
		return nil, errors.New("identity and password are required")
	}

	endpoint := fmt.Sprintf("%s/api/collections/%s/auth-with-password", c.APIURL, url.PathEscape(c.collection()))
	payload := map[string]string{
		"identity": identity,
		"password": password,
	}

	var resp authResponse
	if err := c.sendJSON("POST", endpoint, payload, &resp); err != nil {
		return nil, fmt.Errorf("auth with password: %w", err)
	}

	if strings.TrimSpace(resp.Token) == "" {
		return nil, errors.New("auth with password: empty token in response")
	}

	c.token = resp.Token

	user, err := decodeUser(resp.Record)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("authenticated", zap.String("user_id", user.ID))

	return user, nil
}

// AuthRefresh renews the current token and returns the record it belongs to.
func (c *Client) AuthRefresh() (*User, error) {
	if !c.Authenticated() {
		return nil, errors.New("auth refresh: no token")
	}

	endpoint := fmt.Sprintf("%s/api/collections/%s/auth-refresh", c.APIURL, url.PathEscape(c.collection()))

	var resp authResponse
	if err := c.sendJSON("POST", endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("auth refresh: %w", err)
	}

	if token := strings.TrimSpace(resp.Token); token != "" {
		c.token = token
	}

	return decodeUser(resp.Record)
}

// CreateUser signs up a new record. The password is sent as its own confirmation.
func (c *Client) CreateUser(nu NewUser) (*User, error) {
	if strings.TrimSpace(nu.Email) == "" || nu.Password == "" || strings.TrimSpace(nu.FullName) == "" {
		return nil, errors.New("email, password and full name are required")
	}

	payload := map[string]string{
		"email":           strings.TrimSpace(nu.Email),
		"password":        nu.Password,
		"passwordConfirm": nu.Password,
		"fullName":        strings.TrimSpace(nu.FullName),
	}

	var raw map[string]any
	if err := c.sendJSON("POST", c.recordsURL(), payload, &raw); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return decodeUser(raw)
}

// UpdateProfile changes the bio, age and gender fields that are set in p.
func (c *Client) UpdateProfile(id string, p Profile) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("user id is required")
	}

	payload := p.payload()
	if len(payload) == 0 {
		return nil, errors.New("nothing to update")
	}
	if p.Age != nil && *p.Age < 0 {
		return nil, fmt.Errorf("age must not be negative, got %d", *p.Age)
	}

	var raw map[string]any
	if err := c.sendJSON("PATCH", c.recordURL(id), payload, &raw); err != nil {
		return nil, fmt.Errorf("update profile of user %s: %w", id, err)
	}

	return decodeUser(raw)
}

// UpdateFileJSON replaces the fileJSON field of the record.
func (c *Client) UpdateFileJSON(id string, entries []FileEntry) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("user id is required")
	}

	if entries == nil {
		entries = []FileEntry{}
	}

	payload := map[string]any{"fileJSON": entries}

	var raw map[string]any
	if err := c.sendJSON("PATCH", c.recordURL(id), payload, &raw); err != nil {
		return nil, fmt.Errorf("update files of user %s: %w", id, err)
	}

	return decodeUser(raw)
}

// FileURL returns the download URL of a file attached to the record.
func (c *Client) FileURL(user *User, name string) string {
	if user == nil || user.ID == "" || name == "" {
		return ""
	}

	collection := user.CollectionID
	if collection == "" {
		collection = c.collection()
	}

	return fmt.Sprintf("%s/api/files/%s/%s/%s", c.APIURL, url.PathEscape(collection), url.PathEscape(user.ID), url.PathEscape(name))
}

func (c *Client) recordsURL() string {
	return fmt.Sprintf("%s/api/collections/%s/records", c.APIURL, url.PathEscape(c.collection()))
}

func (c *Client) recordURL(id string) string {
	return fmt.Sprintf("%s/%s", c.recordsURL(), url.PathEscape(id))
}

func (c *Client) perPage() int {
	if c.PerPage <= 0 {
		return defaultPerPage
	}
	return c.PerPage
}

func decodeUser(raw map[string]any) (*User, error) {
	if raw == nil {
		return nil, errors.New("empty user record")
	}

	var user User
	if err := decode(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}

	return &user, nil
}

func decode(input, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			fileJSONHook,
			timeHook,
		),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// fileJSONHook accepts fileJSON stored as an encoded string, as older uploads did.
func fileJSONHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]FileEntry{}) {
		return data, nil
	}

	s := strings.TrimSpace(data.(string))
	if s == "" || s == "null" {
		return []FileEntry{}, nil
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(s), &entries); err != nil {
		return nil, fmt.Errorf("fileJSON is not a json array: %w", err)
	}

	return entries, nil
}

func timeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}

	s := strings.TrimSpace(data.(string))
	if s == "" {
		return time.Time{}, nil
	}

	// PocketBase dates use a space instead of the T separator.
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999Z07:00", "2006-01-02 15:04:05.999Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, nil
}
