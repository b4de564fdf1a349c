package source

import "github.com/agriguard/kasane/types"

// Unwrapper is implemented by sources that decorate another source.
type Unwrapper interface {
	Unwrap() Source
}

// Describe collects metadata about src.
// Name and type come from src itself; wrapped sources are walked so that
// details such as a file path survive Alias and WithTimeout.
func Describe(src Source) types.Details {
	d := types.Details{
		Name:   src.Name(),
		Source: src.Type(),
	}
	for cur := src; cur != nil; {
		if df, ok := cur.(types.DetailsFiller); ok {
			df.FillDetails(&d)
		}
		u, ok := cur.(Unwrapper)
		if !ok {
			break
		}
		cur = u.Unwrap()
	}
	return d
}
