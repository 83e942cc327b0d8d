package approval

import (
	"context"

	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Always answers every request with the same decision without waiting. Used for unattended runs.
type Always bool

func (a Always) RequestApproval(_ context.Context, _ entity.ApprovalRequest) (bool, error) {
	return bool(a), nil
}
