package icf

// QualifierInfo describes one value of the generic ICF severity scale.
// The scale applies to any ICF code after a point separator, e.g. d450.2
// reads as a moderate problem with walking.
type QualifierInfo struct {
	Qualifier    int    `json:"qualifier"`
	Level        string `json:"level"`
	PercentRange string `json:"percent_range"`
	Description  string `json:"description"`
	Example      string `json:"example"`
}

var qualifierTable = map[int]QualifierInfo{
	0: {
		Qualifier:    0,
		Level:        "No problem",
		PercentRange: "0-4%",
		Description:  "None, absent, negligible",
		Example:      "d450.0 means 'no problem' difficulty with walking.",
	},
	1: {
		Qualifier:    1,
		Level:        "Mild problem",
		PercentRange: "5-24%",
		Description:  "Slight, low",
		Example:      "d450.1 means 'mild problem' difficulty with walking.",
	},
	2: {
		Qualifier:    2,
		Level:        "Moderate problem",
		PercentRange: "25-49%",
		Description:  "Medium, fair",
		Example:      "d450.2 means 'moderate problem' difficulty with walking.",
	},
	3: {
		Qualifier:    3,
		Level:        "Severe problem",
		PercentRange: "50-95%",
		Description:  "High, extreme",
		Example:      "d450.3 means 'severe problem' difficulty with walking.",
	},
	4: {
		Qualifier:    4,
		Level:        "Complete problem",
		PercentRange: "96-100%",
		Description:  "Total",
		Example:      "d450.4 means 'complete problem' difficulty with walking.",
	},
	8: {
		Qualifier:    8,
		Level:        "Not specified",
		PercentRange: "N/A",
		Description:  "Insufficient information to specify severity",
		Example:      "d450.8 means 'not specified' difficulty with walking.",
	},
	9: {
		Qualifier:    9,
		Level:        "Not applicable",
		PercentRange: "N/A",
		Description:  "Inappropriate to apply this code",
		Example:      "d450.9 means 'not applicable' difficulty with walking.",
	},
}

const classificationOverview = `# International Classification of Functioning, Disability and Health (ICF)

The ICF is the WHO framework for describing health and health-related
states. It complements the ICD: where the ICD classifies diseases, the
ICF classifies functioning, that is, what a person can or cannot do in
daily life.

Every ICF code starts with a letter naming one of four components,
followed by a chapter digit and further digits for finer levels.

## b - Body Functions
Physiological functions of body systems, including psychological functions.

- b1 Mental functions
- b2 Sensory functions and pain
- b3 Voice and speech functions
- b4 Functions of the cardiovascular, haematological, immunological and respiratory systems
- b5 Functions of the digestive, metabolic and endocrine systems
- b6 Genitourinary and reproductive functions
- b7 Neuromusculoskeletal and movement-related functions
- b8 Functions of the skin and related structures

## s - Body Structures
Anatomical parts of the body such as organs, limbs and their components.

- s1 Structures of the nervous system
- s2 The eye, ear and related structures
- s3 Structures involved in voice and speech
- s4 Structures of the cardiovascular, immunological and respiratory systems
- s5 Structures related to the digestive, metabolic and endocrine systems
- s6 Structures related to the genitourinary and reproductive systems
- s7 Structures related to movement
- s8 Skin and related structures

## d - Activities and Participation
Execution of tasks and involvement in life situations.

- d1 Learning and applying knowledge
- d2 General tasks and demands
- d3 Communication
- d4 Mobility
- d5 Self-care
- d6 Domestic life
- d7 Interpersonal interactions and relationships
- d8 Major life areas
- d9 Community, social and civic life

## e - Environmental Factors
The physical, social and attitudinal environment in which people live.

- e1 Products and technology
- e2 Natural environment and human-made changes to environment
- e3 Support and relationships
- e4 Attitudes
- e5 Services, systems and policies

## Qualifiers

A point-separated digit after a code grades the severity of a problem:
0 no problem (0-4%), 1 mild (5-24%), 2 moderate (25-49%), 3 severe
(50-95%), 4 complete (96-100%). 8 means not specified and 9 means not
applicable.

## Available tools

- icf_lookup: full record for a known code
- icf_search: find codes by clinical term
- icf_browse_category: sample one of the four components
- icf_get_children: drill down the hierarchy
- icf_explain_qualifier: decode a severity qualifier
- icf_overview: this text

Reference: https://www.who.int/standards/classifications/international-classification-of-functioning-disability-and-health
`
