package scoring

import "github.com/fairyhunter13/job-match-scorer/internal/domain"

// Signal derives the scoring view of a job offer.
func Signal(job domain.JobOffer) domain.JobSignal {
	return domain.JobSignal{
		SkillsText:              job.Skills,
		DescriptionText:         job.Description,
		TitleText:               job.Title,
		RequiredExperienceYears: ExperienceYears(job.Description),
	}
}

// MLJobView derives the job view sent to the ML service.
func MLJobView(job domain.JobOffer) domain.MLJobData {
	return domain.MLJobData{
		Title:              job.Title,
		RequiredSkills:     job.Skills,
		Description:        job.Description,
		RequiredExperience: RequiredExperience(job.Description),
	}
}
