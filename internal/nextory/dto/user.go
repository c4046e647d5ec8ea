package dto

// Salt is the single-use salt of a login handshake.
type Salt struct {
	Salt string `json:"salt"`
}

// AccountType values reported by the login endpoint.
const (
	AccountTypeMember    = 1
	AccountTypeCanceled  = 2
	AccountTypeNonMember = 3
	AccountTypeVisitor   = 4
)

// Login is the response of both login steps.
type Login struct {
	Token       string `json:"token"`
	AccountType int    `json:"accounttype"`
}

// AccountList lists the sub-accounts of a primary account.
type AccountList struct {
	Accounts []SubAccount `json:"accounts"`
}

// SubAccountActive is the status of a usable sub-account.
const SubAccountActive = "active"

// SubAccount is a child profile under a primary account.
type SubAccount struct {
	LoginKey string `json:"loginkey"`
	Status   string `json:"status"`
}
