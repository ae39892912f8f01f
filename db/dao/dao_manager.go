package dao

type DaoManager struct {
	*PollDao
	*QuizDao
	*ClaimDao
	*TokenDao
}

func NewDaoManager(pollDao *PollDao, quizDao *QuizDao, claimDao *ClaimDao, tokenDao *TokenDao) *DaoManager {
	return &DaoManager{
		PollDao:  pollDao,
		QuizDao:  quizDao,
		ClaimDao: claimDao,
		TokenDao: tokenDao,
	}
}
