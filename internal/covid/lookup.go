package covid

// FindByName returns the snapshot whose Name equals name byte for byte.
// There is no case folding or fuzzy matching; a miss is ErrNotFound.
func FindByName(snapshots []CountrySnapshot, name string) (CountrySnapshot, error) {
	for _, s := range snapshots {
		if s.Name == name {
			return s, nil
		}
	}
	return CountrySnapshot{}, ErrNotFound
}
