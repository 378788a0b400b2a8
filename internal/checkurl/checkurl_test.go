package checkurl

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeClient struct {
	mu     sync.Mutex
	status types.OpenStatus
	calls  [][]string
}

func (f *fakeClient) CheckURLs(_ context.Context, urls []string) types.OpenStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), urls...))
	return f.status
}

func TestPublicAccessible(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	tests := []struct {
		name      string
		lang      types.DescriptorLanguage
		inputs    []string
		params    string
		status    types.OpenStatus
		want      *bool
		wantCalls int
		wantURLs  []string
	}{
		{
			name: "no file inputs", lang: types.DescriptorLanguageCWL,
			params: `{"x": 1}`, want: boolPtr(true),
		},
		{
			name: "input missing from parameters", lang: types.DescriptorLanguageCWL,
			inputs: []string{"reads"}, params: `{"other": "https://example.org/a"}`, want: boolPtr(false),
		},
		{
			name: "no parameter file", lang: types.DescriptorLanguageWDL,
			inputs: []string{"reads"}, want: boolPtr(false),
		},
		{
			name: "local path", lang: types.DescriptorLanguageCWL,
			inputs: []string{"reads"}, params: `{"reads": {"class": "File", "path": "data/reads.fq"}}`, want: boolPtr(false),
		},
		{
			name: "all open", lang: types.DescriptorLanguageCWL,
			inputs: []string{"reads", "refs"},
			params: `{"reads": {"class": "File", "location": "https://example.org/r.fq",
				"secondaryFiles": [{"class": "File", "location": "https://example.org/r.fq.fai"}]},
				"refs": [[{"class": "File", "location": "https://example.org/ref.fa"}], "https://example.org/r.fq"]}`,
			status: types.OpenStatusAllOpen, want: boolPtr(true), wantCalls: 1,
			wantURLs: []string{"https://example.org/r.fq", "https://example.org/r.fq.fai", "https://example.org/ref.fa"},
		},
		{
			name: "wdl namespaced keys", lang: types.DescriptorLanguageWDL,
			inputs: []string{"bam"}, params: `{"hello.bam": "gs://bucket/a.bam"}`,
			status: types.OpenStatusNotAllOpen, want: boolPtr(false), wantCalls: 1,
			wantURLs: []string{"gs://bucket/a.bam"},
		},
		{
			name: "service unknown", lang: types.DescriptorLanguageWDL,
			inputs: []string{"bam"}, params: `{"wf.bam": "https://example.org/a.bam"}`,
			status: types.OpenStatusUnknown, want: nil, wantCalls: 1,
		},
		{
			name: "null optional file", lang: types.DescriptorLanguageCWL,
			inputs: []string{"extra"}, params: `{"extra": null}`, want: boolPtr(true),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{status: tt.status}
			var params []byte
			if tt.params != "" {
				params = []byte(tt.params)
			}
			got := NewChecker(fc).PublicAccessible(ctx, tt.lang, tt.inputs, params)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
			assert.Len(t, fc.calls, tt.wantCalls)
			if tt.wantURLs != nil {
				assert.ElementsMatch(t, tt.wantURLs, fc.calls[0])
			}
		})
	}
}

func TestClientCheckURLs(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	var body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		switch gjson.Get(body, "urls.0").String() {
		case "https://open":
			w.Write([]byte(`{"status": "ALL_OPEN"}`))
		case "https://closed":
			w.Write([]byte(`{"status": "NOT_ALL_OPEN"}`))
		case "https://garbage":
			w.Write([]byte(`{"status": "MAYBE"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL, time.Second)
	assert.Equal(t, types.OpenStatusAllOpen, c.CheckURLs(ctx, []string{"https://open"}))
	assert.Equal(t, `https://open`, gjson.Get(body, "urls.0").String())
	assert.Equal(t, types.OpenStatusNotAllOpen, c.CheckURLs(ctx, []string{"https://closed"}))
	assert.Equal(t, types.OpenStatusUnknown, c.CheckURLs(ctx, []string{"https://garbage"}))
	assert.Equal(t, types.OpenStatusUnknown, c.CheckURLs(ctx, []string{"https://error"}))

	assert.Equal(t, types.OpenStatusUnknown, NewClient("", time.Second).CheckURLs(ctx, []string{"https://open"}))
	assert.Equal(t, types.OpenStatusUnknown, NewClient("http://127.0.0.1:1", time.Second).CheckURLs(ctx, []string{"https://open"}))
}
