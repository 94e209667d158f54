// 包 version：构建期注入的版本信息
package version

// Commit：构建提交号，经 -ldflags "-X ip-query/internal/version.Commit=<sha>" 注入
var Commit = "dev"
