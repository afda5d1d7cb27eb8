package mapping

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status struct {
	ID        int           `json:"id"`
	Text      string        `json:"text"`
	Score     float64       `json:"score"`
	Public    bool          `json:"public"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
	Tags      []string      `json:"tags"`

	before int
	after  int
}

func (s *status) BeforeMapping() { s.before++ }
func (s *status) AfterMapping()  { s.after++ }

type plain struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

func TestMapFromDictionary(t *testing.T) {
	dict := map[string]interface{}{
		"id":         float64(42),
		"TEXT":       "hello",
		"score":      "1.5",
		"public":     "true",
		"created_at": "2024-05-01T10:00:00Z",
		"ttl":        "30s",
		"tags":       []interface{}{"a", "b"},
		"unknown":    "ignored",
	}

	var s status
	require.NoError(t, MapFromDictionary(&s, dict))

	assert.Equal(t, 42, s.ID)
	assert.Equal(t, "hello", s.Text)
	assert.Equal(t, 1.5, s.Score)
	assert.True(t, s.Public)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), s.CreatedAt.UTC())
	assert.Equal(t, 30*time.Second, s.TTL)
	assert.Equal(t, []string{"a", "b"}, s.Tags)
	assert.Equal(t, 1, s.before)
	assert.Equal(t, 1, s.after)
}

func TestMapFromDictionary_KeepsMissingFields(t *testing.T) {
	s := status{ID: 7, Text: "keep"}
	require.NoError(t, MapFromDictionary(&s, map[string]interface{}{"text": "new"}))
	assert.Equal(t, 7, s.ID)
	assert.Equal(t, "new", s.Text)
}

func TestMapFromDictionary_Errors(t *testing.T) {
	var s status
	assert.ErrorIs(t, MapFromDictionary(s, nil), ErrNotPointer)
	assert.ErrorIs(t, MapFromDictionary((*status)(nil), nil), ErrNotPointer)

	n := 3
	assert.ErrorIs(t, MapFromDictionary(&n, nil), ErrNotPointer)

	err := MapFromDictionary(&s, map[string]interface{}{"created_at": "yesterday"})
	require.Error(t, err)
	assert.Equal(t, 1, s.before)
	assert.Equal(t, 0, s.after, "AfterMapping must not run on failure")
}

func TestFromDictionary(t *testing.T) {
	p, err := FromDictionary[plain](map[string]interface{}{"name": "x", "count": 2})
	require.NoError(t, err)
	assert.Equal(t, &plain{Name: "x", Count: 2}, p)
}

func TestFromJSON(t *testing.T) {
	s, err := FromJSON[status]([]byte(`{"id": 1, "text": "hi", "tags": ["x"]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, s.ID)
	assert.Equal(t, "hi", s.Text)
	assert.Equal(t, 1, s.after)

	_, err = FromJSON[status]([]byte(`[1, 2]`))
	assert.Error(t, err)

	_, err = FromJSON[status]([]byte(`{`))
	assert.Error(t, err)
}

func TestArrayFromDictionaries(t *testing.T) {
	items, err := ArrayFromDictionaries[plain]([]map[string]interface{}{
		{"name": "a"},
		{"name": "b", "count": "3"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, 3, items[1].Count)

	_, err = ArrayFromDictionaries[plain]([]map[string]interface{}{
		{"name": "a"},
		{"count": "many"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")
}

func TestFromResponse_Body(t *testing.T) {
	one, err := FromResponse[plain](BodyResponse{Body: map[string]interface{}{"name": "solo"}})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "solo", one[0].Name)

	many, err := FromResponse[plain](BodyResponse{Body: []interface{}{
		map[string]interface{}{"name": "a"},
		map[string]interface{}{"name": "b"},
	}})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, "b", many[1].Name)

	_, err = FromResponse[plain](BodyResponse{Body: "text"})
	assert.ErrorIs(t, err, ErrUnexpectedBody)

	_, err = FromResponse[plain](BodyResponse{Body: []interface{}{"text"}})
	assert.ErrorIs(t, err, ErrUnexpectedBody)

	_, err = FromResponse[plain](nil)
	assert.ErrorIs(t, err, ErrNilResponse)
}

func TestFromResponse_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/one":
			_, _ = io.WriteString(w, `{"name": "one", "count": 1}`)
		case "/many":
			_, _ = io.WriteString(w, `[{"name": "a"}, {"name": "b"}, {"name": "c"}]`)
		default:
			_, _ = io.WriteString(w, `not json`)
		}
	}))
	defer srv.Close()

	get := func(path string) *HTTPResponse {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		return NewHTTPResponse(resp)
	}

	r := get("/one")
	assert.Equal(t, http.StatusOK, r.StatusCode())
	one, err := FromResponse[plain](r)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, 1, one[0].Count)

	// 响应体被缓存，可再次映射
	again, err := FromResponse[plain](r)
	require.NoError(t, err)
	assert.Equal(t, one, again)

	many, err := FromResponse[plain](get("/many"))
	require.NoError(t, err)
	assert.Len(t, many, 3)

	_, err = FromResponse[plain](get("/bad"))
	assert.Error(t, err)

	_, err = NewHTTPResponse(nil).ParsedBody()
	assert.ErrorIs(t, err, ErrNilResponse)
	assert.Equal(t, 0, NewHTTPResponse(nil).StatusCode())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestHTTPResponse_ReadError(t *testing.T) {
	r := NewHTTPResponse(&http.Response{Body: io.NopCloser(failingReader{})})
	_, err := r.ParsedBody()
	assert.ErrorContains(t, err, "boom")
}

func TestCopyProperties(t *testing.T) {
	src := &status{ID: 1, Text: "src", Tags: []string{"t"}, before: 9}
	dst := &status{ID: 2, Text: "dst"}

	require.NoError(t, CopyProperties(dst, src))
	assert.Equal(t, 1, dst.ID)
	assert.Equal(t, "src", dst.Text)
	assert.Equal(t, []string{"t"}, dst.Tags)
	// 非导出字段不复制
	assert.Equal(t, 0, dst.before)

	assert.ErrorIs(t, CopyProperties(dst, &plain{}), ErrTypeMismatch)
	assert.ErrorIs(t, CopyProperties(dst, *src), ErrNotPointer)
	assert.ErrorIs(t, CopyProperties(*dst, src), ErrNotPointer)
}

func TestClone(t *testing.T) {
	src := &plain{Name: "orig", Count: 5}
	c, err := Clone(src)
	require.NoError(t, err)
	assert.Equal(t, src, c)
	assert.NotSame(t, src, c)

	c.Name = "changed"
	assert.Equal(t, "orig", src.Name)

	_, err = Clone[plain](nil)
	assert.ErrorIs(t, err, ErrNotPointer)
}

func TestToDictionary(t *testing.T) {
	dict, err := ToDictionary(&plain{Name: "x", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, "x", dict["name"])
	assert.Equal(t, 3, dict["count"])

	back, err := FromDictionary[plain](dict)
	require.NoError(t, err)
	assert.Equal(t, &plain{Name: "x", Count: 3}, back)

	_, err = ToDictionary(plain{})
	assert.ErrorIs(t, err, ErrNotPointer)
}

func TestHTTPResponse_LargeBodyTruncated(t *testing.T) {
	body := `{"name": "` + strings.Repeat("x", maxBodySize) + `"}`
	r := NewHTTPResponse(&http.Response{Body: io.NopCloser(strings.NewReader(body))})
	_, err := r.ParsedBody()
	assert.Error(t, err)
}
