package handler

import (
    "errors"
    "fmt"
    "mime/multipart"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/service"
    "github.com/iliyamo/recruitment-api/internal/storage"
)

func isMultipart(c echo.Context) bool {
    return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formUpload opens the multipart file field, checks its size and sniffs its
// content against the folder's accepted types.  It returns a nil Upload when
// the field is absent.  The returned close func must always be called.
func formUpload(c echo.Context, field, folder string, maxBytes int64) (*service.Upload, func(), error) {
    noop := func() {}
    fh, err := c.FormFile(field)
    if errors.Is(err, http.ErrMissingFile) {
        return nil, noop, nil
    }
    if err != nil {
        return nil, noop, badRequest(field, "Could not read the uploaded file")
    }
    if maxBytes > 0 && fh.Size > maxBytes {
        return nil, noop, badRequest(field, fmt.Sprintf("File too large, the limit is %d MB", maxBytes>>20))
    }
    if fh.Size == 0 {
        return nil, noop, badRequest(field, "The submitted file is empty")
    }
    f, err := fh.Open()
    if err != nil {
        return nil, noop, badRequest(field, "Could not read the uploaded file")
    }
    closeFn := func() { _ = f.Close() }

    ct, body, err := storage.Sniff(f, folder)
    if errors.Is(err, storage.ErrUnsupportedType) {
        closeFn()
        return nil, noop, badRequest(field, "Unsupported file type "+ct)
    }
    if err != nil {
        closeFn()
        return nil, noop, badRequest(field, "Could not read the uploaded file")
    }
    return &service.Upload{Body: body, Size: fh.Size, ContentType: ct, Filename: fileName(fh)}, closeFn, nil
}

func fileName(fh *multipart.FileHeader) string {
    if fh.Filename == "" {
        return "upload"
    }
    return fh.Filename
}

func formUint(c echo.Context, field string, required bool) (uint64, error) {
    s := strings.TrimSpace(c.FormValue(field))
    if s == "" {
        if required {
            return 0, badRequest(field, "This field is required")
        }
        return 0, nil
    }
    v, err := strconv.ParseUint(s, 10, 64)
    if err != nil {
        return 0, badRequest(field, "A valid integer is required")
    }
    return v, nil
}

// formIDs reads repeated or comma separated ids.
func formIDs(c echo.Context, field string) ([]uint64, error) {
    form, err := c.MultipartForm()
    if err != nil {
        return nil, badRequest(field, "Malformed form")
    }
    var out []uint64
    for _, raw := range form.Value[field] {
        for _, p := range strings.Split(raw, ",") {
            if p = strings.TrimSpace(p); p == "" {
                continue
            }
            v, err := strconv.ParseUint(p, 10, 64)
            if err != nil {
                return nil, badRequest(field, "A list of ids is required")
            }
            out = append(out, v)
        }
    }
    return out, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(field, s string) (*time.Time, error) {
    s = strings.TrimSpace(s)
    if s == "" {
        return nil, nil
    }
    for _, layout := range []string{time.RFC3339, "2006-01-02"} {
        if t, err := time.Parse(layout, s); err == nil {
            return &t, nil
        }
    }
    return nil, badRequest(field, "Use YYYY-MM-DD or an RFC 3339 timestamp")
}
