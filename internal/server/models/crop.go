package models

// CropMetadata is the reference record for one detector class label.
// DiseaseName and DiseaseDescription are nil for healthy classes.
type CropMetadata struct {
	ClassName          string  `json:"class_name"`
	CropName           string  `json:"crop_name"`
	CropDescription    string  `json:"crop_description"`
	DiseaseName        *string `json:"disease_name"`
	DiseaseDescription *string `json:"disease_description"`
	CareDescription    string  `json:"care_description"`
}

// DetectionResult is the /predict response. Confidence is always the
// detector's score for the chosen candidate.
type DetectionResult struct {
	CropName           string  `json:"crop_name"`
	CropDescription    string  `json:"crop_description"`
	DiseaseName        *string `json:"disease_name"`
	DiseaseDescription *string `json:"disease_description"`
	CareDescription    string  `json:"care_description"`
	Confidence         float64 `json:"confidence"`
}

// NewDetectionResult joins metadata with the detector's confidence.
func NewDetectionResult(m *CropMetadata, confidence float64) *DetectionResult {
	return &DetectionResult{
		CropName:           m.CropName,
		CropDescription:    m.CropDescription,
		DiseaseName:        m.DiseaseName,
		DiseaseDescription: m.DiseaseDescription,
		CareDescription:    m.CareDescription,
		Confidence:         confidence,
	}
}
