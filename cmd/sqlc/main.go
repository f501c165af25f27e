package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"gopkg.in/yaml.v2"

	"github.com/spf13/viper"
)

const defaultConfigName = "sqlc.yaml"

// generateConfig пишет sqlc.yaml для одного queries.sql: пакет = имя его каталога.
func generateConfig(version string, engine *viper.Viper, file, out string) (string, error) {
	var (
		dir, _      = filepath.Split(file)
		parts       = strings.Split(dir, string(os.PathSeparator))
		packageName = parts[len(parts)-2]
	)
	engine.Set("gen.go.package", packageName)
	engine.Set("queries", file)

	engine.Set("gen.go.out", dir)
	engineSettings := engine.AllSettings()
	delete(engineSettings, "source")

	resultConfig := viper.New()
	resultConfig.Set("version", version)
	resultConfig.Set("sql", []interface{}{engineSettings})

	bs, err := yaml.Marshal(resultConfig.AllSettings())
	if err != nil {
		return "", errors.Wrap(err, "marshal config to yaml")
	}
	_ = os.Remove(out)
	temp, err := os.Create(out)
	if err != nil {
		return "", errors.Wrapf(err, "create %s file", out)
	}
	defer temp.Close()
	if _, err = temp.Write(bs); err != nil {
		_ = os.Remove(temp.Name())
		return "", errors.Wrap(err, "write content")
	}
	return temp.Name(), nil
}

func callSqlc(config string) error {
	cmd := exec.Command("sqlc", "generate", "--file", config)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("call sqlc: %s", string(output)))
	}
	return nil
}

// run читает .sqlc.base.yaml из baseDir и генерирует код для каждого файла из sql.0.source.
func run(baseDir, out string, generate func(config string) error) ([]string, error) {
	base := viper.New()
	base.SetConfigName(".sqlc.base")
	base.SetConfigType("yaml")
	base.AddConfigPath(baseDir)
	if err := base.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read base config")
	}

	srcConfigValue := base.GetStringSlice("sql.0.source")
	if len(srcConfigValue) == 0 {
		return nil, errors.New("has no sql.0.source in config")
	}
	files := make([]string, 0)
	for _, pattern := range srcConfigValue {
		f, err := filepath.Glob(filepath.Join(baseDir, pattern))
		if err != nil {
			return nil, errors.Wrap(err, "get file glob")
		}
		files = append(files, f...)
	}

	schemaConfigValue := base.GetString("sql.0.schema")
	engine := base.Sub("sql.0")
	engine.Set("schema", filepath.Join(baseDir, schemaConfigValue))

	defer func() { _ = os.Remove(out) }()
	for _, file := range files {
		configFile, err := generateConfig(base.GetString("version"), engine, file, out)
		if err != nil {
			return files, errors.Wrap(err, "can't generate result config")
		}
		if err := generate(configFile); err != nil {
			return files, errors.Wrapf(err, "generate %s", file)
		}
		fmt.Printf("%s file complete\n", file)
	}
	return files, nil
}

func main() {
	if _, err := run(".", defaultConfigName, callSqlc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("done")
}
