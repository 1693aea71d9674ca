package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/shoprec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是业务规则解释器，使用 CEL (Common Expression Language) 实现。
// RuleFilter 用它在不改代码的前提下表达运营侧的过滤规则。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.recall_source == "popular" / item.reason != "similar"
//   - 数值：item.score > 0.7 / item.price >= 9.9
//   - 逻辑：item.category == "books" && item.score > 0.8
//   - 包含：label.recall_source.contains("trending")
//
// 注意：has(label.key) 可以用 label.key != null 替代
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的规则解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行规则表达式，返回布尔结果。
// 空表达式视为恒真。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		// 对于不存在的 key，CEL 会返回错误
		// 规则应使用 label.key != null 检查存在性，而不是直接访问
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]interface{} {
	labels := make(map[string]interface{})
	itemMap := make(map[string]interface{})
	rctxMap := make(map[string]interface{})

	if e.item != nil {
		itemMap["id"] = e.item.ID
		itemMap["score"] = e.item.Score
		itemMap["reason"] = string(e.item.Reason)
		if p := e.item.Product; p != nil {
			itemMap["category"] = p.Category
			itemMap["price"] = p.Price
			itemMap["stock"] = p.Stock
		}
		for k, lbl := range e.item.Labels {
			labels[k] = lbl.Value
		}
	}
	if e.rctx != nil {
		rctxMap["user_id"] = e.rctx.UserID
		rctxMap["scene"] = e.rctx.Scene
		rctxMap["is_guest"] = e.rctx.IsGuest()
	}

	return map[string]interface{}{
		"item":  itemMap,
		"label": labels,
		"rctx":  rctxMap,
	}
}
