package api

import (
	"encoding/json"
	"time"
)

type Entry struct {
	ID                       string     `json:"id"`
	Path                     string     `json:"path"`
	EntryType                string     `json:"entry_type"`
	Mode                     string     `json:"mode"`
	SourceControl            string     `json:"source_control"`
	Organization             string     `json:"organization"`
	Repository               string     `json:"repository"`
	EntryName                string     `json:"entry_name,omitempty"`
	DescriptorLanguage       string     `json:"descriptor_language"`
	DefaultDescriptorPath    string     `json:"default_descriptor_path"`
	DefaultTestParameterPath string     `json:"default_test_parameter_path,omitempty"`
	DefaultVersion           *string    `json:"default_version"`
	IsPublished              bool       `json:"is_published"`
	IsChecker                bool       `json:"is_checker"`
	CheckerID                *string    `json:"checker_id,omitempty"`
	Author                   string     `json:"author,omitempty"`
	Email                    string     `json:"email,omitempty"`
	Description              string     `json:"description,omitempty"`
	Image                    string     `json:"image,omitempty"`
	Versions                 []Version  `json:"versions,omitempty"`
	LastUpdated              *time.Time `json:"last_updated,omitempty"`
}

type Version struct {
	ID                                string         `json:"id"`
	Name                              string         `json:"name"`
	Reference                         string         `json:"reference"`
	ReferenceType                     string         `json:"reference_type"`
	CommitID                          *string        `json:"commit_id"`
	Valid                             bool           `json:"valid"`
	ValidationMessage                 string         `json:"validation_message,omitempty"`
	Hidden                            bool           `json:"hidden"`
	DirtyBit                          bool           `json:"dirty_bit"`
	Synced                            bool           `json:"synced"`
	LastModified                      *time.Time     `json:"last_modified,omitempty"`
	DescriptorPath                    string         `json:"descriptor_path"`
	TestParameterPaths                []string       `json:"test_parameter_paths,omitempty"`
	Author                            string         `json:"author,omitempty"`
	Email                             string         `json:"email,omitempty"`
	Description                       string         `json:"description,omitempty"`
	PublicAccessibleTestParameterFile *bool          `json:"public_accessible_test_parameter_file"`
	Image                             *ImageMetadata `json:"image,omitempty"`
}

type ImageMetadata struct {
	ImageID   string     `json:"image_id"`
	Checksums []Checksum `json:"checksums"`
	Size      int64      `json:"size"`
}

type Checksum struct {
	Type     string `json:"type"`
	Checksum string `json:"checksum"`
}

type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	VersionName *string         `json:"version_name,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type UpdateDescriptorPathReq struct {
	DescriptorPath string `json:"descriptor_path"`
}

type UpdateDescriptorPathRsp struct {
	Desynced int `json:"desynced"`
}

// UpdateVersionReq changes the attributes that are present.
type UpdateVersionReq struct {
	Hidden         *bool   `json:"hidden,omitempty"`
	DescriptorPath *string `json:"descriptor_path,omitempty"`
}

type SetDefaultVersionReq struct {
	Name string `json:"name"`
}

type AssignCheckerReq struct {
	CheckerID string `json:"checker_id"`
}

type CountRsp struct {
	EntryType string `json:"entry_type"`
	Count     int    `json:"count"`
}
