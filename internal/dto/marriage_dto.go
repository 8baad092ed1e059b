package dto

type PartnerInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
}

type WitnessInput struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type ReservationRequest struct {
	PartnerOne            PartnerInput `json:"partner_one"`
	PartnerTwo            PartnerInput `json:"partner_two"`
	PreferredDate         string       `json:"preferred_date"`
	PreferredTime         string       `json:"preferred_time"`
	PreferredLocation     string       `json:"preferred_location"`
	SelectedShaykh        string       `json:"selected_shaykh"`
	AdditionalInformation string       `json:"additional_information"`
}

type CertificateRequest struct {
	PartnerOne            PartnerInput   `json:"partner_one"`
	PartnerTwo            PartnerInput   `json:"partner_two"`
	MarriageDate          string         `json:"marriage_date"`
	MarriagePlace         string         `json:"marriage_place"`
	Witnesses             []WitnessInput `json:"witnesses"`
	RegisterAsAustralian  bool           `json:"register_as_australian"`
	AdditionalInformation string         `json:"additional_information"`
}

type CertificateURLResponse struct {
	URL string `json:"url"`
}
