package dto

type CreateFatwaRequest struct {
	Title    string `json:"title"`
	Question string `json:"question"`
	Category string `json:"category"`
	Privacy  string `json:"privacy"`
	Urgency  string `json:"urgency"`
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

type ReviewRequest struct {
	Comment string `json:"comment"`
}
