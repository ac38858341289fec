package filter

import (
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/parlorchat/parlor/globals"
	"github.com/parlorchat/parlor/types"
)

// Recipient is the projection of a user that a delivery filter expression
// may inspect.
type Recipient struct {
	Code    string
	Name    string
	Country string
	Admin   bool
	Dev     bool
}

// Env is the evaluation environment of a delivery filter.
type Env struct {
	Recipient Recipient
}

// Compile compiles a delivery filter expression. An empty expression yields
// a nil program, which delivers to everyone.
func Compile(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, nil
	}
	return expr.Compile(expression, expr.Env(Env{}))
}

// Allow evaluates prog against the recipient. Evaluation errors and
// non-boolean results fall back to delivering the event: a broken filter
// must not silence a room.
func Allow(prog *vm.Program, user *types.User) bool {
	if prog == nil {
		return true
	}
	env := Env{}
	if user != nil {
		env.Recipient = Recipient{
			Code:    user.Code,
			Name:    user.Name,
			Country: user.Country,
			Admin:   user.Admin,
			Dev:     user.Dev,
		}
	}
	res, err := expr.Run(prog, env)
	if err != nil {
		globals.AppLogger.Error("could not evaluate delivery filter", "error", err)
		return true
	}
	if ok, isBool := res.(bool); isBool {
		return ok
	}
	return true
}
