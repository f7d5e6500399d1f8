package entry

// AccountRoot flags.
const (
	// FlagAuthRequired makes trustlines require issuer authorization.
	FlagAuthRequired uint32 = 0x00000001
	// FlagAuthRevocable lets the issuer revoke authorization.
	FlagAuthRevocable uint32 = 0x00000002
	// FlagAuthImmutable freezes the flag set itself.
	FlagAuthImmutable uint32 = 0x00000004
	// FlagAuthIssuanceLimit marks the issuer as opted into batch-clearing
	// semantics; only assets of such issuers are commutative.
	FlagAuthIssuanceLimit uint32 = 0x00000010
)

// TrustLine flags.
const (
	// FlagTrustAuthorized permits holding a balance.
	FlagTrustAuthorized uint32 = 0x00000001
	// FlagTrustAuthorizedToMaintainLiabilities permits keeping existing
	// balances and offers, but not increasing them.
	FlagTrustAuthorizedToMaintainLiabilities uint32 = 0x00000002
)
