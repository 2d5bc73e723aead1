package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/keeper"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/templates"
)

// generatedSecretBytes is the entropy of generated passwords; the hex form
// is twice as long.
const generatedSecretBytes = 16

// progressInterval is how often the create wizard prints a progress dot.
var progressInterval = 2 * time.Second

var fieldPrompts = map[templates.Field]string{
	templates.FieldName:         "Name",
	templates.FieldUsername:     "Username",
	templates.FieldPassword:     "Password (empty to generate)",
	templates.FieldDatabaseName: "Database name",
	templates.FieldRootPassword: "Root password (empty to generate)",
	templates.FieldPort:         "Host port",
}

// Create runs the provisioning wizard: kind, then every field the template
// requires. It blocks until the database is ready or provisioning failed.
func (a *App) Create(ctx context.Context, args []string) error {
	if !a.keeper.Unlocked() {
		return common.ErrVaultLocked
	}

	var kind string
	if len(args) > 0 {
		kind = args[0]
	} else {
		var err error
		kind, err = GetSimpleText(a.reader, "Kind ("+kindList()+")", a.out)
		if err != nil {
			return err
		}
	}

	tmpl, err := templates.Lookup(models.Kind(strings.ToLower(kind)))
	if err != nil {
		return err
	}

	p, err := a.askParams(tmpl)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Provisioning %s %q", tmpl.Kind, p.Name)
	res := a.waitCreate(ctx, a.keeper.CreateDatabaseAsync(ctx, tmpl.Kind, p))
	fmt.Fprintln(a.out)
	if res.Err != nil {
		return res.Err
	}

	conn, err := a.keeper.ConnectionString(res.Record)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Ready: %s\n%s\n", res.Record, conn)
	return nil
}

func (a *App) waitCreate(ctx context.Context, ch <-chan keeper.CreateResult) keeper.CreateResult {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case res := <-ch:
			return res
		case <-ticker.C:
			fmt.Fprint(a.out, ".")
		case <-ctx.Done():
			// the keeper observes the same ctx and reports the cancellation
			return <-ch
		}
	}
}

func (a *App) askParams(tmpl templates.Template) (models.Params, error) {
	var p models.Params
	for _, f := range tmpl.Required {
		v, err := a.askField(tmpl, f)
		if err != nil {
			return p, err
		}
		if err := setField(&p, f, v); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (a *App) askField(tmpl templates.Template, f templates.Field) (string, error) {
	prompt := fieldPrompts[f]
	if prompt == "" {
		prompt = string(f)
	}

	switch {
	case f == templates.FieldPort:
		return GetTextWithDefault(a.reader, prompt, strconv.Itoa(tmpl.DefaultPort), a.out)
	case f.Secret():
		pw, err := GetPassword(a.reader, prompt, a.out)
		if err != nil {
			return "", err
		}
		defer common.WipeByteArray(pw)
		if len(pw) == 0 {
			return common.MakeRandHexString(generatedSecretBytes)
		}
		return string(pw), nil
	}
	return GetSimpleText(a.reader, prompt, a.out)
}

func setField(p *models.Params, f templates.Field, v string) error {
	switch f {
	case templates.FieldName:
		p.Name = v
	case templates.FieldUsername:
		p.Username = v
	case templates.FieldPassword:
		p.Password = v
	case templates.FieldDatabaseName:
		p.DatabaseName = v
	case templates.FieldRootPassword:
		p.RootPassword = v
	case templates.FieldPort:
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: port %q is not a number", common.ErrValidation, v)
		}
		p.Port = port
	}
	return nil
}

func kindList() string {
	kinds := templates.Kinds()
	s := make([]string, len(kinds))
	for i, k := range kinds {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
