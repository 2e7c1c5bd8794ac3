package auth

import "errors"

// ErrInvalidCredentials is the single rejection for every login failure:
// unknown email, wrong password, disabled account, not-yet-activated
// account. Collapsing them denies an attacker an account-probing oracle.
var ErrInvalidCredentials = errors.New("invalid credentials")
