package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

// ListPhotos returns the photos of a time entry, oldest first. Photos that
// still wait for upload carry their data URL as ImageURL.
func (r *Repository) ListPhotos(ctx context.Context, timeEntryID string) ([]models.Photo, error) {
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}

	if r.readRemote() && !r.store.hasPending(ctx, owner, timeEntryID) {
		gen := r.store.generation()
		rows, err := r.remote.ListPhotos(ctx, owner, timeEntryID)
		if err == nil {
			if err := r.refreshPhotos(ctx, owner, timeEntryID, gen, rows); err != nil && !errors.Is(err, errStaleSnapshot) {
				r.log.Warn(ctx, "mirror refresh failed", "collection", models.CollectionPhotos, "error", err)
				return rows, nil
			}
		} else {
			r.remoteFailed(ctx, "list photos", err)
		}
	}

	photos, err := r.store.repos.Photos(r.store.db).ListByTimeEntry(ctx, timeEntryID)
	if err != nil {
		return nil, fmt.Errorf("list local photos: %w", err)
	}
	return photos, nil
}

func (r *Repository) refreshPhotos(ctx context.Context, owner, timeEntryID string, gen uint64, rows []models.Photo) error {
	return dbx.WithTx(ctx, r.store.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.store.checkFresh(gen); err != nil {
			return err
		}
		pending, err := r.store.repos.Queue(tx).PendingRowIDs(ctx, owner)
		if err != nil {
			return err
		}
		photos := r.store.repos.Photos(tx)
		if err := photos.DeleteByTimeEntryExcept(ctx, timeEntryID, pending); err != nil {
			return err
		}
		for i := range rows {
			if _, err := photos.InsertIgnore(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// UploadPhoto attaches an image to a time entry. The binary is kept in the
// mirror as a data URL until the upload is confirmed. An empty contentType
// is sniffed from data.
func (r *Repository) UploadPhoto(ctx context.Context, timeEntryID, filename, contentType string, data []byte) (*models.Photo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: photo is empty", common.ErrInvalidInput)
	}
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}
	if err := r.requireTimeEntry(ctx, timeEntryID); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	inline := models.EncodeDataURL(contentType, data)
	p := models.Photo{
		ID:              r.newID(),
		TimeEntryID:     timeEntryID,
		ImageURL:        inline,
		CreatedAt:       r.now(),
		OfflinePayload:  &inline,
		OfflineFilename: &filename,
	}
	if err := r.store.repos.Photos(r.store.db).Put(ctx, &p); err != nil {
		return nil, fmt.Errorf("save local photo: %w", err)
	}

	if r.direct(ctx, owner, p.ID, timeEntryID) {
		stored, err := pushPhoto(ctx, r.remote, r.files, owner, p, filename, contentType, data)
		if err == nil {
			err = r.store.confirm(ctx, owner, models.CollectionPhotos, p.ID, stored.ID,
				func(ctx context.Context, tx dbx.DBTX) error {
					return r.store.repos.Photos(tx).Put(ctx, stored)
				})
			if err != nil {
				return nil, err
			}
			return stored, nil
		}
		r.remoteFailed(ctx, "upload photo", err)
	}

	if err := r.store.enqueue(ctx, owner, p.ID, &models.PhotoInsert{Filename: filename}); err != nil {
		return nil, err
	}
	return &p, nil
}

// pushPhoto uploads the binary and inserts the remote row. The object key
// derives from the local photo ID, so a retry overwrites the same object.
func pushPhoto(ctx context.Context, gw remote.PhotoGateway, files remote.Attachments, owner string, p models.Photo,
	filename, contentType string, data []byte) (*models.Photo, error) {

	path := remote.StoragePath(owner, p.TimeEntryID, p.ID, filename)
	if err := files.Upload(ctx, path, data, contentType); err != nil {
		return nil, err
	}

	p.ImageURL = files.PublicURL(path)
	p.OfflinePayload = nil
	p.OfflineFilename = nil
	return gw.InsertPhoto(ctx, owner, p)
}

// DeletePhoto removes a photo and its uploaded object.
func (r *Repository) DeletePhoto(ctx context.Context, id string) error {
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return err
	}

	photos := r.store.repos.Photos(r.store.db)
	payload := &models.PhotoDelete{}
	p, err := photos.GetByID(ctx, id)
	switch {
	case err == nil:
		if !p.PendingUpload() {
			payload.StoragePath, _ = r.files.PathFromURL(p.ImageURL)
		}
	case !errors.Is(err, common.ErrNotFound):
		return fmt.Errorf("get local photo: %w", err)
	}

	if err := photos.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete local photo: %w", err)
	}
	r.store.touch()

	if r.direct(ctx, owner, id) {
		err := r.remote.DeletePhoto(ctx, owner, id)
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			if payload.StoragePath != "" {
				r.removeObjects(ctx, payload.StoragePath)
			}
			return nil
		}
		r.remoteFailed(ctx, "delete photo", err)
	}
	return r.store.enqueue(ctx, owner, id, payload)
}
