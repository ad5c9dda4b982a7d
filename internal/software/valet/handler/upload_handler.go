package handler

import (
	"errors"
	"io"
	"net/http"

	"valet/internal/general/imagestore"
)

// uploadField is the multipart field carrying vehicle photos.
const uploadField = "carImages"

// ----- Handler: POST /bookings/images -----

func (handler *BookingHTTPHandler) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if handler.uploads.Store == nil {
		handler.httpError(ctx, w, http.StatusServiceUnavailable, "image uploads are disabled", nil)
		return
	}

	limit := handler.uploads.MaxBytes*int64(handler.uploads.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(handler.uploads.MaxBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "expected multipart/form-data", err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		handler.httpError(ctx, w, http.StatusBadRequest, "no images in field "+uploadField, nil)
		return
	}
	if len(files) > handler.uploads.MaxFiles {
		handler.httpError(ctx, w, http.StatusBadRequest, "too many images", nil)
		return
	}

	refs := make([]string, 0, len(files))
	for _, fh := range files {
		if fh.Size > handler.uploads.MaxBytes {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, fh.Filename+": image too large", imagestore.ErrTooLarge)
			return
		}
		f, err := fh.Open()
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "unreadable upload", err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "unreadable upload", err)
			return
		}

		ref, err := handler.uploads.Store.Save(ctx, fh.Filename, fh.Header.Get("Content-Type"), data)
		switch {
		case errors.Is(err, imagestore.ErrNotImage), errors.Is(err, imagestore.ErrEmpty):
			handler.httpError(ctx, w, http.StatusBadRequest, fh.Filename+": "+err.Error(), err)
			return
		case errors.Is(err, imagestore.ErrTooLarge):
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, fh.Filename+": "+err.Error(), err)
			return
		case err != nil:
			handler.httpError(ctx, w, http.StatusInternalServerError, "failed to store image", err)
			return
		}
		refs = append(refs, ref)
	}

	handler.logger.Info(ctx, "images_uploaded", "Vehicle images stored", map[string]any{"count": len(refs)})
	handler.jsonResponse(ctx, w, http.StatusCreated, uploadResponse{Images: refs})
}
