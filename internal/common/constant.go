package common

// Key namespaces of the durable key/value store. Everything under
// EntityKeyPrefix is wiped by a reset; SettingsKeyPrefix survives it.
const (
	EntityKeyPrefix   = "credits."
	SettingsKeyPrefix = "settings."
)

// Entity keys.
const (
	KeyBalance               = EntityKeyPrefix + "balance"
	KeyHistory               = EntityKeyPrefix + "history"
	KeyPurchases             = EntityKeyPrefix + "purchases"
	KeyProcessedTransactions = EntityKeyPrefix + "processed_transactions"
	KeyFreeTrial             = EntityKeyPrefix + "free_trial"
)

// Settings keys.
const (
	KeySharedSecret   = SettingsKeyPrefix + "shared_secret"
	KeySecretSalt     = SettingsKeyPrefix + "secret_salt"
	KeyInstallationID = SettingsKeyPrefix + "installation_id"
)
