package provisioner

import (
	"errors"
	"fmt"
)

// Errors returned by the provisioning steps. Errors coming from Azure stay in
// the chain and can be inspected with errors.As.
var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrNoSubscription   = errors.New("no subscription found")
	ErrConfig           = errors.New("invalid configuration")
	ErrAccess           = errors.New("resource group not accessible")
	ErrInvalidTemplate  = errors.New("invalid environment template")
	ErrNameAvailability = errors.New("name availability check failed")
	ErrFileWrite        = errors.New("failed to write variables file")
)

// ProvisioningError reports a failed create, update or delete of an environment
type ProvisioningError struct {
	Op          string
	Environment string
	Err         error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to %s environment %s: %v", e.Op, e.Environment, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
