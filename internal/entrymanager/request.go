package entrymanager

import (
	"strings"

	"github.com/mugiliam/hatchdockstore/internal/schemavalidator"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

// RegisterRequest registers an entry whose content lives in a source control repository.
type RegisterRequest struct {
	SourceControl      string `json:"source_control" validate:"required,sourceControlValidator"`
	Organization       string `json:"organization" validate:"required,nameFormatValidator"`
	Repository         string `json:"repository" validate:"required,nameFormatValidator"`
	EntryName          string `json:"entry_name" validate:"omitempty,nameFormatValidator"`
	EntryType          string `json:"entry_type" validate:"required,entryTypeValidator"`
	DescriptorLanguage string `json:"descriptor_language" validate:"required,languageValidator"`
	DescriptorPath     string `json:"descriptor_path" validate:"required,descriptorPathValidator"`
	TestParameterPath  string `json:"test_parameter_path" validate:"omitempty,descriptorPathValidator"`
	ImageRegistry      string `json:"image_registry" validate:"omitempty,noSpacesValidator"`
	ImageNamespace     string `json:"image_namespace" validate:"omitempty,nameFormatValidator"`
	ImageName          string `json:"image_name" validate:"omitempty,nameFormatValidator"`
}

// CreateHostedRequest creates an entry edited directly in the service.
type CreateHostedRequest struct {
	Organization       string `json:"organization" validate:"required,nameFormatValidator"`
	Name               string `json:"name" validate:"required,nameFormatValidator"`
	EntryType          string `json:"entry_type" validate:"required,entryTypeValidator"`
	DescriptorLanguage string `json:"descriptor_language" validate:"required,languageValidator"`
}

// HostedFile is one file of a hosted edit. A null content deletes the file, an
// absent one keeps the stored content and only changes the type.
type HostedFile struct {
	Path    string               `json:"path" validate:"required,descriptorPathValidator"`
	Content types.NullableString `json:"content"`
	Type    types.FileType       `json:"type"`
}

type EditHostedRequest struct {
	Files []HostedFile `json:"files" validate:"required,min=1,dive"`
}

type AddCheckerRequest struct {
	DescriptorPath     string `json:"descriptor_path" validate:"required,descriptorPathValidator"`
	TestParameterPath  string `json:"test_parameter_path" validate:"omitempty,descriptorPathValidator"`
	DescriptorLanguage string `json:"descriptor_language" validate:"omitempty,languageValidator"`
}

func validate(req any) error {
	if ves := schemavalidator.ValidateStruct(req); ves != nil {
		return ErrInvalidRequest.Msg(ves.Error())
	}
	return nil
}

func parseLanguage(s string) types.DescriptorLanguage {
	l, _ := types.ParseDescriptorLanguage(s)
	return l
}

// defaultDescriptorPath is where a hosted entry keeps its primary descriptor.
func defaultDescriptorPath(lang types.DescriptorLanguage) string {
	switch lang {
	case types.DescriptorLanguageWDL:
		return "/Dockstore.wdl"
	case types.DescriptorLanguageNextflow:
		return "/nextflow.config"
	}
	return "/Dockstore.cwl"
}

func checkerName(entryName string, lang types.DescriptorLanguage) string {
	suffix := "_" + strings.ToLower(string(lang)) + "_checker"
	return entryName + suffix
}
