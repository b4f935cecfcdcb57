package models

// RegistrationRootName is the folder every dealer folder lives under.
const RegistrationRootName = "registration"

// DealerFolder is the per-dealer container in the storage provider.
type DealerFolder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
	Created  bool   `json:"created"` // false when an existing folder was reused
}

// DealerFolderName builds "{dealersCode}_{dealershipName}".
func DealerFolderName(dealersCode, dealershipName string) string {
	return dealersCode + "_" + dealershipName
}
