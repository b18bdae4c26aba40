package client

import "time"

type User struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

type Prediction struct {
	CropName           string  `json:"crop_name"`
	CropDescription    string  `json:"crop_description"`
	DiseaseName        *string `json:"disease_name"`
	DiseaseDescription *string `json:"disease_description"`
	CareDescription    string  `json:"care_description"`
	Confidence         float64 `json:"confidence"`
}

// Healthy reports whether the prediction names no disease.
func (p *Prediction) Healthy() bool {
	return p.DiseaseName == nil || *p.DiseaseName == ""
}
