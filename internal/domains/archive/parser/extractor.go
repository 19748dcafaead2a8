package parser

import (
	"context"
	"unicode/utf8"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared/apperror"
)

type extractor struct {
	unpacker Unpacker
	tempRoot string
}

// NewExtractor dispatches on kind. tempRoot may be empty to use the OS default.
func NewExtractor(unpacker Unpacker, tempRoot string) archive.Extractor {
	return &extractor{unpacker: unpacker, tempRoot: tempRoot}
}

func (e *extractor) Extract(ctx context.Context, data []byte, kind archive.Kind) (*archive.PackageVersion, error) {
	switch kind {
	case archive.KindSingle:
		if !utf8.Valid(data) {
			return nil, apperror.NewSyntaxError("Package file is not valid UTF-8")
		}
		return ExtractSingleFile(string(data))
	case archive.KindTar:
		return ExtractArchive(ctx, e.unpacker, e.tempRoot, data)
	}
	return nil, apperror.NewInputError("unsupported package kind %q", kind)
}
