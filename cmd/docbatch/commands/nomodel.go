package commands

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// noModel backs commands that only read stored reports.
type noModel struct{}

func (noModel) Process(context.Context, entity.SelectedFile, string, *entity.Template) (entity.ExtractionResult, error) {
	return entity.ExtractionResult{}, errors.New("extraction is not available in this command")
}
