package handler

import (
    "bytes"
    "encoding/json"
    "errors"
    "math"
    "mime/multipart"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/recruitment-api/internal/model"
    "github.com/iliyamo/recruitment-api/internal/service"
    "github.com/iliyamo/recruitment-api/internal/storage"
)

var (
    pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<<>>\n%%EOF\n")
    pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
)

func TestErrorResponse(t *testing.T) {
    cases := []struct {
        kind   service.Kind
        status int
    }{
        {service.KindValidation, http.StatusBadRequest},
        {service.KindDuplicate, http.StatusBadRequest},
        {service.KindAuth, http.StatusUnauthorized},
        {service.KindNotFound, http.StatusNotFound},
        {service.KindPermission, http.StatusForbidden},
        {service.KindUnavailable, http.StatusBadGateway},
    }
    for _, tc := range cases {
        status, body := errorResponse(&service.Error{Kind: tc.kind, Code: "x", Message: "msg"})
        assert.Equal(t, tc.status, status, tc.kind.String())
        assert.Equal(t, "x", body.Error)
        assert.Equal(t, "msg", body.Message)
    }
}

func TestErrorResponseHidesInternalDetail(t *testing.T) {
    status, body := errorResponse(&service.Error{Kind: service.KindInternal, Code: "db", Message: "dial tcp 10.0.0.3"})
    assert.Equal(t, http.StatusInternalServerError, status)
    assert.Equal(t, "internal_error", body.Error)
    assert.NotContains(t, body.Message, "10.0.0.3")

    status, body = errorResponse(errors.New("boom"))
    assert.Equal(t, http.StatusInternalServerError, status)
    assert.Equal(t, "internal_error", body.Error)
}

func TestErrorResponseEchoErrors(t *testing.T) {
    status, body := errorResponse(echo.NewHTTPError(http.StatusNotFound))
    assert.Equal(t, http.StatusNotFound, status)
    assert.Equal(t, "not_found", body.Error)

    status, body = errorResponse(echo.NewHTTPError(http.StatusForbidden, "invalid or expired link"))
    assert.Equal(t, http.StatusForbidden, status)
    assert.Equal(t, "forbidden", body.Error)
    assert.Equal(t, "invalid or expired link", body.Message)
}

func TestHTTPErrorHandlerWritesFields(t *testing.T) {
    e := echo.New()
    e.HTTPErrorHandler = HTTPErrorHandler
    e.GET("/x", func(c echo.Context) error { return badRequest("page", "Invalid id") })

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

    require.Equal(t, http.StatusBadRequest, rec.Code)
    var body ErrorBody
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    assert.Equal(t, "invalid_input", body.Error)
    assert.Equal(t, map[string]string{"page": "Invalid id"}, body.Fields)
}

func TestPagingParse(t *testing.T) {
    p := Paging{Default: 10, Max: 100}
    cases := []struct {
        query      string
        page, size int
    }{
        {"", 1, 10},
        {"page=3&page_size=25", 3, 25},
        {"page=0&page_size=0", 1, 10},
        {"page=-2&page_size=-5", 1, 10},
        {"page=abc&page_size=xyz", 1, 10},
        {"page=2&page_size=1000", 2, 100},
        {"page=9223372036854775807&page_size=10", math.MaxInt32 / 10, 10},
    }
    e := echo.New()
    for _, tc := range cases {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil), httptest.NewRecorder())
        page, size := p.parse(c)
        assert.Equal(t, tc.page, page, tc.query)
        assert.Equal(t, tc.size, size, tc.query)
    }
}

func TestNewPageEncodesEmptyItems(t *testing.T) {
    bs, err := json.Marshal(newPage[int](nil, 0, 4, 10))
    require.NoError(t, err)
    assert.JSONEq(t, `{"items":[],"total":0,"page":4,"page_size":10}`, string(bs))
}

func TestToListingDerivedFields(t *testing.T) {
    lo, hi := 50000.0, 80000.0
    now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
    l := model.Listing{
        ID: 1, Title: "Go Developer", Slug: "go-developer-acme",
        SalaryMin: &lo, SalaryMax: &hi,
        CreatedAt: now.Add(-49 * time.Hour),
    }

    dto := toListing(l, now, true)
    assert.Equal(t, "$50,000 - $80,000", dto.SalaryRange)
    assert.Equal(t, "2 days ago", dto.PostedDate)
    assert.True(t, dto.HasApplied)

    l.SalaryMin, l.SalaryMax = nil, nil
    assert.Equal(t, "Salary not specified", toListing(l, now, false).SalaryRange)
}

func TestToApplicationPointsAtResumeRoute(t *testing.T) {
    dto := toApplication(model.Application{ID: 7, ListingID: 3, DocumentID: "resumes/abc.pdf"})
    assert.Equal(t, "/jobs/applications/7/resume/", dto.Resume)

    bs, err := json.Marshal(dto)
    require.NoError(t, err)
    assert.NotContains(t, string(bs), "resumes/abc.pdf")
}

// multipartContext builds a context whose request carries one file part
// plus the given text fields.
func multipartContext(t *testing.T, field, filename string, content []byte, values map[string][]string) echo.Context {
    t.Helper()
    var buf bytes.Buffer
    w := multipart.NewWriter(&buf)
    for k, vs := range values {
        for _, v := range vs {
            require.NoError(t, w.WriteField(k, v))
        }
    }
    if field != "" {
        fw, err := w.CreateFormFile(field, filename)
        require.NoError(t, err)
        _, err = fw.Write(content)
        require.NoError(t, err)
    }
    require.NoError(t, w.Close())

    req := httptest.NewRequest(http.MethodPost, "/", &buf)
    req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
    return echo.New().NewContext(req, httptest.NewRecorder())
}

func requireField(t *testing.T, err error, field string) {
    t.Helper()
    var se *service.Error
    require.ErrorAs(t, err, &se)
    assert.Equal(t, service.KindValidation, se.Kind)
    assert.Contains(t, se.Fields, field)
}

func TestFormUploadAcceptsResume(t *testing.T) {
    c := multipartContext(t, "resume", "cv.pdf", pdfBytes, nil)
    require.True(t, isMultipart(c))

    up, closeFn, err := formUpload(c, "resume", storage.FolderResumes, 1<<20)
    defer closeFn()
    require.NoError(t, err)
    require.NotNil(t, up)
    assert.Equal(t, "application/pdf", up.ContentType)
    assert.Equal(t, "cv.pdf", up.Filename)
    assert.Equal(t, int64(len(pdfBytes)), up.Size)
}

func TestFormUploadRejections(t *testing.T) {
    c := multipartContext(t, "resume", "cv.png", pngBytes, nil)
    _, closeFn, err := formUpload(c, "resume", storage.FolderResumes, 1<<20)
    closeFn()
    requireField(t, err, "resume")

    c = multipartContext(t, "resume", "cv.pdf", pdfBytes, nil)
    _, closeFn, err = formUpload(c, "resume", storage.FolderResumes, 8)
    closeFn()
    requireField(t, err, "resume")

    c = multipartContext(t, "", "", nil, map[string][]string{"job": {"1"}})
    up, closeFn, err := formUpload(c, "resume", storage.FolderResumes, 1<<20)
    closeFn()
    require.NoError(t, err)
    assert.Nil(t, up)
}

func TestFormValues(t *testing.T) {
    c := multipartContext(t, "", "", nil, map[string][]string{
        "tags":      {"1,2", " 3 "},
        "author_id": {"x"},
    })

    ids, err := formIDs(c, "tags")
    require.NoError(t, err)
    assert.Equal(t, []uint64{1, 2, 3}, ids)

    _, err = formUint(c, "author_id", true)
    requireField(t, err, "author_id")
    _, err = formUint(c, "missing", true)
    requireField(t, err, "missing")
    v, err := formUint(c, "missing", false)
    require.NoError(t, err)
    assert.Zero(t, v)
}

func TestParseDate(t *testing.T) {
    d, err := parseDate("date", "2026-01-02")
    require.NoError(t, err)
    assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), *d)

    d, err = parseDate("date", "2026-01-02T15:04:05Z")
    require.NoError(t, err)
    assert.Equal(t, 15, d.Hour())

    d, err = parseDate("date", "  ")
    require.NoError(t, err)
    assert.Nil(t, d)

    _, err = parseDate("date", "02/01/2026")
    requireField(t, err, "date")
}

func TestFirstQuery(t *testing.T) {
    c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/?search=go&q=", nil), httptest.NewRecorder())
    assert.Equal(t, "go", firstQuery(c, "q", "search"))
    assert.Empty(t, firstQuery(c, "category"))
    assert.True(t, strings.HasPrefix(resumePath(9), "/jobs/applications/9"))
}
