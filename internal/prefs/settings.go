package prefs

const (
	keyTheme         = "theme"
	keyDailyPageGoal = "default_reading_goal"
)

// UserSettings are the user-tunable scalars that live outside the
// relational store.
type UserSettings struct {
	Theme         string `json:"theme"`
	DailyPageGoal int    `json:"daily_page_goal"`
}

func (s *Store) UserSettings() (UserSettings, error) {
	theme, err := s.GetString(keyTheme, "light")
	if err != nil {
		return UserSettings{}, err
	}
	goal, err := s.GetInt(keyDailyPageGoal, 20)
	if err != nil {
		return UserSettings{}, err
	}
	return UserSettings{Theme: theme, DailyPageGoal: goal}, nil
}

func (s *Store) SaveUserSettings(settings UserSettings) error {
	if err := s.SetString(keyTheme, settings.Theme); err != nil {
		return err
	}
	return s.SetInt(keyDailyPageGoal, settings.DailyPageGoal)
}
