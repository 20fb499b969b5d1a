// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// MaxImages is the per-post image limit.
	MaxImages = 5

	// MaxVideos is the per-post video limit.
	MaxVideos = 1
)

// MediaKind separates images from videos for limit accounting.
type MediaKind int

const (
	MediaImage MediaKind = iota
	MediaVideo
)

func (k MediaKind) String() string {
	if k == MediaVideo {
		return "video"
	}
	return "image"
}

var allowedMedia = map[string]MediaKind{
	"image/jpeg": MediaImage,
	"image/png":  MediaImage,
	"image/webp": MediaImage,
	"video/mp4":  MediaVideo,
}

// MediaFile is an upload candidate that passed the type allowlist.
type MediaFile struct {
	Path string
	MIME string
	Kind MediaKind
}

// DetectMedia sniffs one file's content type and checks it against the
// allowlist.
func DetectMedia(path string) (MediaFile, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return MediaFile{}, fmt.Errorf("detect media type of %s: %w", path, err)
	}

	// Exact matches only: HEIC and friends descend from MP4 in the
	// detection tree and must not pass as video.
	for allowed, kind := range allowedMedia {
		if mtype.Is(allowed) {
			return MediaFile{Path: path, MIME: allowed, Kind: kind}, nil
		}
	}
	return MediaFile{}, fmt.Errorf("%s (%s): %w", path, mtype.String(), ErrUnsupportedMedia)
}

// CheckMedia filters a post's attachments.
//
// Files outside the allowlist are skipped and returned separately so the
// caller can warn about them; exceeding the image or video limit among the
// accepted files rejects the whole selection. I/O errors are returned as-is.
func CheckMedia(paths []string) (accepted []MediaFile, skipped []string, err error) {
	var images, videos int
	for _, path := range paths {
		file, err := DetectMedia(path)
		if err != nil {
			if IsValidation(err) {
				skipped = append(skipped, path)
				continue
			}
			return nil, nil, err
		}
		switch file.Kind {
		case MediaImage:
			images++
		case MediaVideo:
			videos++
		}
		accepted = append(accepted, file)
	}

	if images > MaxImages {
		return nil, skipped, ErrTooManyImages
	}
	if videos > MaxVideos {
		return nil, skipped, ErrTooManyVideos
	}
	return accepted, skipped, nil
}

// CheckProfilePicture accepts exactly one image from the allowlist.
func CheckProfilePicture(path string) (MediaFile, error) {
	file, err := DetectMedia(path)
	if err != nil {
		return MediaFile{}, err
	}
	if file.Kind != MediaImage {
		return MediaFile{}, &Error{Field: "profilePicture", Reason: "must be a JPEG, PNG or WebP image"}
	}
	return file, nil
}

// CheckPost requires a caption or at least one attachment.
func CheckPost(caption string, files []MediaFile) error {
	if RequireText(caption) != nil && len(files) == 0 {
		return ErrEmptyPost
	}
	return nil
}
