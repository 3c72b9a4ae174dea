package projects

// Status is a traffic-light state of a permit stage.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
	StatusGray   Status = "gray"
)

// Stage is one step of the permit process.
type Stage struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

type permitOutcome int

const (
	outcomeGranted permitOutcome = iota + 1
	outcomeInReview
	outcomeBlocked
)

var permitRules = []keywordRule[permitOutcome]{
	{outcomeGranted, []string{"otorgad", "autorizad", "emitid", "aprobado"}},
	{outcomeInReview, []string{"evaluacion", "analisis", "proceso", "tramite"}},
	{outcomeBlocked, []string{"requerimiento", "prevencion", "desechad", "suspendid"}},
}

// Stages derives the four permit stages from the permit status and the
// planned works start date. Intake is always complete; evaluation starts in
// progress.
func Stages(p Project) []Stage {
	stages := []Stage{
		{ID: "solicitud", Label: "Ingreso Solicitud", Description: "Documentación recibida", Status: StatusGreen},
		{ID: "evaluacion", Label: "Evaluación Técnica", Description: "Revisión en proceso", Status: StatusYellow},
		{ID: "resolucion", Label: "Resolución SENER", Description: "Emisión de dictamen", Status: StatusGray},
		{ID: "construccion", Label: "Inicio de Obras", Description: "Fase de construcción", Status: StatusGray},
	}

	outcome, _ := matchRules(p.Get(ColPermitStatus), permitRules)
	switch outcome {
	case outcomeGranted:
		stages[1].Status = StatusGreen
		stages[2].Status = StatusGreen
		stages[3].Status = StatusYellow
	case outcomeInReview:
		stages[1].Status = StatusYellow
	case outcomeBlocked:
		stages[1].Status = StatusRed
	}

	if p.Get(ColWorksStart) != "" {
		stages[3].Status = StatusGreen
	}
	return stages
}
