package relationship

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AccountChecker answers whether an account id exists.
type AccountChecker interface {
	AccountExists(ctx context.Context, id string) (bool, error)
}

// PartnerVerifier confirms referenced accounts exist before they are linked.
type PartnerVerifier struct {
	accounts AccountChecker
}

func NewPartnerVerifier(accounts AccountChecker) *PartnerVerifier {
	return &PartnerVerifier{accounts: accounts}
}

// VerifyOne reports whether id names an existing account. A lookup failure
// is returned as ErrTransient, never as "does not exist".
func (v *PartnerVerifier) VerifyOne(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	exists, err := v.accounts.AccountExists(ctx, id)
	if err != nil {
		return false, fromStore("verify account "+id, err)
	}
	return exists, nil
}

// VerifyMany checks ids in order and stops at the first account that does
// not exist, returning its id. An empty failedID with a nil error means every
// id was verified. Repeated ids are looked up once per call.
func (v *PartnerVerifier) VerifyMany(ctx context.Context, ids []string) (failedID string, err error) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		ok, err := v.VerifyOne(ctx, id)
		if err != nil {
			return "", err
		}
		seen[id] = true
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function":   "VerifyMany",
				"partner_id": id,
			}).Debug("Referenced account does not exist")
			return id, nil
		}
	}
	return "", nil
}
