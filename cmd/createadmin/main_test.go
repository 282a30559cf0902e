package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebuszqo/ExpenseTracker/internal/config"
	"github.com/sebuszqo/ExpenseTracker/internal/db/dbtest"
	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

func TestReadInput(t *testing.T) {
	var out bytes.Buffer
	reader := linePassword(bufio.NewReader(strings.NewReader("s3cret-pass\ns3cret-pass\n")), &out)

	input, err := readInput("root", "", reader)
	require.NoError(t, err)
	assert.Equal(t, "root", input.Username)
	assert.Equal(t, "s3cret-pass", input.Password)
	assert.Contains(t, out.String(), "Confirm password: ")
}

func TestReadInput_Mismatch(t *testing.T) {
	reader := linePassword(bufio.NewReader(strings.NewReader("s3cret-pass\nother-pass\n")), &bytes.Buffer{})

	_, err := readInput("root", "Root", reader)
	assert.ErrorIs(t, err, errPasswordMismatch)
}

func TestRun_RequiresUsername(t *testing.T) {
	err := run(context.Background(), nil, strings.NewReader(""), &bytes.Buffer{})
	assert.EqualError(t, err, "-username is required")
}

func TestCreateAdmin(t *testing.T) {
	db := dbtest.New(t)
	cfg := &config.Config{
		Security:   config.SecurityConfig{BcryptCost: 4},
		Categories: config.CategoriesConfig{Defaults: []string{"Rent"}},
	}
	input, err := readInput("root", "", linePassword(bufio.NewReader(strings.NewReader("s3cret-pass\ns3cret-pass\n")), &bytes.Buffer{}))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, createAdmin(context.Background(), cfg, db, input, nil, &out))
	assert.Contains(t, out.String(), "Administrator root created")

	var role string
	require.NoError(t, db.Conn().QueryRowContext(context.Background(), `SELECT role FROM users WHERE username = $1`, "root").Scan(&role))
	assert.Equal(t, string(policy.RoleAdmin), role)

	var categories int
	require.NoError(t, db.Conn().QueryRowContext(context.Background(), `SELECT COUNT(*) FROM categories c JOIN users u ON u.id = c.user_id WHERE u.username = $1`, "root").Scan(&categories))
	assert.Equal(t, 2, categories)

	err = createAdmin(context.Background(), cfg, db, input, nil, &out)
	assert.True(t, appErrors.IsConflictError(err))
}
