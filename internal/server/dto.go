package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type createDocumentRequest struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	OwnerID  string `json:"ownerId"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

func (r createDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, is.UUIDv4),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.OwnerID, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

type saveVersionRequest struct {
	Content         string  `json:"content"`
	AuthorID        string  `json:"authorId"`
	BatchGroupID    string  `json:"batchGroupId,omitempty"`
	PreviousContent *string `json:"previousContent,omitempty"`
}

func (r saveVersionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.AuthorID, validation.Required),
	)
}

type titleChangeRequest struct {
	NewTitle string `json:"newTitle"`
	OldTitle string `json:"oldTitle"`
	UserID   string `json:"userId"`
}

func (r titleChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewTitle, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.UserID, validation.Required),
	)
}

type visibilityRequest struct {
	IsPublic bool   `json:"isPublic"`
	UserID   string `json:"userId"`
}

func (r visibilityRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
	)
}

type restoreRequest struct {
	VersionID string `json:"versionId"`
	AuthorID  string `json:"authorId"`
}

func (r restoreRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.VersionID, validation.Required),
		validation.Field(&r.AuthorID, validation.Required),
	)
}
