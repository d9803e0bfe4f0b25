package model

// Service categories offered in the inquiry wizard.
const (
	ServiceWebsite = "Website Development"
	ServiceMobile  = "Mobile Application"
	ServiceVideo   = "Video Editing"
	ServiceSEO     = "SEO & Insights"
	ServiceAIML    = "AI / ML Models"
	ServiceGeneral = "General"
)

// DefaultService is preselected when a draft is created without an interest.
const DefaultService = ServiceWebsite

// serviceOrder keeps the catalog listing stable.
var serviceOrder = []string{
	ServiceWebsite,
	ServiceMobile,
	ServiceVideo,
	ServiceSEO,
	ServiceAIML,
	ServiceGeneral,
}

var serviceOptions = map[string][]string{
	ServiceWebsite: {"E-Commerce", "SaaS Platform", "Landing Page", "Portfolio", "Dashboard"},
	ServiceMobile:  {"iOS (Swift)", "Android (Kotlin)", "React Native", "Flutter", "Tablet App"},
	ServiceVideo:   {"Commercial Ad", "YouTube Content", "Social Reels", "Corporate", "Documentary"},
	ServiceSEO:     {"Technical Audit", "Content Strategy", "Backlink Campaign", "Local SEO", "Analytics Setup"},
	ServiceAIML:    {"Chatbot / Agent", "Data Prediction", "Image Recog.", "Automation", "NLP Model"},
	ServiceGeneral: {"Consultation", "Partnership", "Other"},
}

// ServiceCategory is one entry of the public catalog.
type ServiceCategory struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// Catalog returns every service category with its options, in display order.
func Catalog() []ServiceCategory {
	out := make([]ServiceCategory, 0, len(serviceOrder))
	for _, name := range serviceOrder {
		out = append(out, ServiceCategory{Name: name, Options: ServiceOptions(name)})
	}
	return out
}

// ServiceOptions returns a copy of the options defined for service, or nil if unknown.
func ServiceOptions(service string) []string {
	opts, ok := serviceOptions[service]
	if !ok {
		return nil
	}
	return append([]string(nil), opts...)
}

// IsValidService reports whether service is part of the catalog.
func IsValidService(service string) bool {
	_, ok := serviceOptions[service]
	return ok
}

// IsValidOption reports whether option belongs to service.
func IsValidOption(service, option string) bool {
	for _, o := range serviceOptions[service] {
		if o == option {
			return true
		}
	}
	return false
}
