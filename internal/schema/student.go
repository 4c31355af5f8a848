package schema

// StudentV1Version is the version tag of the built-in student schema.
const StudentV1Version = "student-v1"

// Domains of the built-in student schema.
var (
	Majors            = []string{"Computer Science", "Math", "Biology"}
	StudyGoals        = []string{"Exam Preparation", "Project", "Research"}
	Participation     = []string{"Low", "Moderate", "High"}
	WeeklyStudyHours  = []string{"<5", "5-10", "10-15", "15+"}
	WeekDays          = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	PreferredTimes    = []string{"Morning", "Afternoon", "Evening"}
	ExamPrepTimes     = []string{"<1 week", "1-2 weeks", ">2 weeks"}
	Environments      = []string{"Library", "Cafe", "Home"}
	StudyTools        = []string{"Laptop", "Tablet", "Notebook"}
	StudyIntensity    = []string{"Light", "Moderate", "Intensive"}
	StudyModes        = []string{"In-person", "Online"}
	ProgrammingStacks = []string{"Python", "Java", "C++"}
	ForeignLanguages  = []string{"English", "Spanish", "Chinese", "Japanese"}
)

// StudentV1 returns the built-in study profile schema.
func StudentV1() *Schema {
	s, err := New(StudentV1Version, []Field{
		{Name: "major", Kind: KindSingle, Domain: Majors},
		{Name: "grade", Kind: KindOrdinal, Min: 1, Max: 4},
		{Name: "study_goal", Kind: KindSingle, Domain: StudyGoals},
		{Name: "class_participation", Kind: KindSingle, Domain: Participation},
		{Name: "weekly_study_hours", Kind: KindSingle, Domain: WeeklyStudyHours},
		{Name: "current_projects", Kind: KindOrdinal, Min: 0, Max: 5},
		{Name: "available_days", Kind: KindMulti, Domain: WeekDays},
		{Name: "preferred_time", Kind: KindSingle, Domain: PreferredTimes},
		{Name: "exam_preparation_time", Kind: KindSingle, Domain: ExamPrepTimes},
		{Name: "uses_course_materials", Kind: KindFlag},
		{Name: "self_study_ability", Kind: KindFlag},
		{Name: "preferred_environment", Kind: KindSingle, Domain: Environments},
		{Name: "preferred_study_tool", Kind: KindSingle, Domain: StudyTools},
		{Name: "study_intensity", Kind: KindSingle, Domain: StudyIntensity},
		{Name: "study_mode", Kind: KindSingle, Domain: StudyModes},
		{Name: "programming_stack", Kind: KindMulti, Domain: ProgrammingStacks, AllowEmpty: true},
		{Name: "research_experience", Kind: KindFlag},
		{Name: "foreign_languages", Kind: KindMulti, Domain: ForeignLanguages, AllowEmpty: true},
		{Name: "online_courses", Kind: KindOrdinal, Min: 0, Max: 5},
		{Name: "leadership_experience", Kind: KindFlag},
	})
	if err != nil {
		panic(err)
	}
	return s
}
