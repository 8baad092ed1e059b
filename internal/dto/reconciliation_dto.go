package dto

type SpouseInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type ReconciliationRequest struct {
	Husband               SpouseInput `json:"husband"`
	Wife                  SpouseInput `json:"wife"`
	IssueDescription      string      `json:"issue_description"`
	AdditionalInformation string      `json:"additional_information"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}
