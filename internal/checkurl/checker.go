package checkurl

import (
	"context"
	"strings"

	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

type Checker struct {
	client URLChecker
}

func NewChecker(client URLChecker) *Checker {
	return &Checker{client: client}
}

func boolPtr(b bool) *bool {
	return &b
}

// PublicAccessible reports whether every file referenced for a File-typed
// input of the descriptor is publicly downloadable. nil means it could not be
// determined.
//
// No File inputs is trivially public. An input absent from the parameters or
// bound to a local path is not public. Only then is the service asked.
func (c *Checker) PublicAccessible(ctx context.Context, lang types.DescriptorLanguage, fileInputs []string, testParamJSON []byte) *bool {
	if len(fileInputs) == 0 {
		return boolPtr(true)
	}
	if len(testParamJSON) == 0 || !gjson.ValidBytes(testParamJSON) {
		return boolPtr(false)
	}
	doc := gjson.ParseBytes(testParamJSON)

	var urls []string
	for _, name := range fileInputs {
		values := lookupInput(doc, lang, name)
		if len(values) == 0 {
			log.Ctx(ctx).Debug().Str("input", name).Msg("file input missing from test parameters")
			return boolPtr(false)
		}
		for _, v := range values {
			urls = collectLocations(v, urls)
		}
	}
	for _, u := range urls {
		if !isURL(u) {
			return boolPtr(false)
		}
	}
	if len(urls) == 0 {
		return boolPtr(true)
	}

	switch c.client.CheckURLs(ctx, dedupe(urls)) {
	case types.OpenStatusAllOpen:
		return boolPtr(true)
	case types.OpenStatusNotAllOpen:
		return boolPtr(false)
	}
	return nil
}

// lookupInput finds the parameter values bound to an input. WDL parameters are
// namespaced by workflow name, so any key ending in ".name" matches too.
func lookupInput(doc gjson.Result, lang types.DescriptorLanguage, name string) []gjson.Result {
	var values []gjson.Result
	doc.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if k == name || (lang == types.DescriptorLanguageWDL && strings.HasSuffix(k, "."+name)) {
			values = append(values, value)
		}
		return true
	})
	return values
}

// collectLocations gathers file locations from strings, nested arrays and CWL
// File objects including their secondaryFiles.
func collectLocations(v gjson.Result, acc []string) []string {
	switch {
	case v.Type == gjson.String:
		return append(acc, v.String())
	case v.IsArray():
		for _, it := range v.Array() {
			acc = collectLocations(it, acc)
		}
	case v.IsObject():
		if loc := v.Get("location"); loc.Exists() {
			acc = append(acc, loc.String())
		} else if p := v.Get("path"); p.Exists() {
			acc = append(acc, p.String())
		}
		if sec := v.Get("secondaryFiles"); sec.Exists() {
			acc = collectLocations(sec, acc)
		}
	}
	return acc
}

func isURL(s string) bool {
	i := strings.Index(s, "://")
	return i > 0 && len(s) > i+3
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
