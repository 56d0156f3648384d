package handler

import (
    "errors"
    "net/http"
    "path"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/recruitment-api/internal/storage"
)

// publicFolders are served without a signature.  Everything else, resumes
// in particular, needs a link produced by LocalStore.SignedURL.
var publicFolders = map[string]bool{
    storage.FolderBlog:    true,
    storage.FolderAuthors: true,
}

// MediaHandler serves objects kept by the local store under /media.
type MediaHandler struct {
    Store *storage.LocalStore
}

func NewMediaHandler(store *storage.LocalStore) *MediaHandler {
    return &MediaHandler{Store: store}
}

// Serve streams one object.  dl=1 forces a download.
func (h *MediaHandler) Serve(c echo.Context) error {
    id := strings.TrimPrefix(c.Param("*"), "/")
    folder, _, _ := strings.Cut(id, "/")
    attachment := c.QueryParam("dl") == "1"

    if !publicFolders[folder] &&
        !h.Store.Verify(id, c.QueryParam("expires"), c.QueryParam("sig"), attachment) {
        return echo.NewHTTPError(http.StatusForbidden, "invalid or expired link")
    }

    f, err := h.Store.Open(id)
    if errors.Is(err, storage.ErrNotFound) {
        return echo.NewHTTPError(http.StatusNotFound)
    }
    if err != nil {
        return err
    }
    defer f.Close()

    st, err := f.Stat()
    if err != nil {
        return err
    }
    if attachment {
        c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+path.Base(id)+`"`)
    }
    if !publicFolders[folder] {
        c.Response().Header().Set("Cache-Control", "private, no-store")
    }
    http.ServeContent(c.Response(), c.Request(), path.Base(id), st.ModTime(), f)
    return nil
}
