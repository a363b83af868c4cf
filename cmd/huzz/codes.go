package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smysle/huzz-rng/internal/service"
)

// errNeedYes 破坏性操作缺少 --yes
var errNeedYes = fmt.Errorf("%w: 请加上 --yes 确认", service.ErrConfirmationRequired)

func (c *cli) generateCmd() *cobra.Command {
	var (
		opts  service.GenerateOptions
		count int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "生成兑换码",
		Long: `按预设或参数生成不重复的兑换码，每行输出一个。

复杂度: numeric(1) 仅数字, upper(2) 大写字母+数字, full(3) 大小写字母+数字+符号

示例:
  huzz generate --preset amongus
  huzz generate -l 16 -x upper --category vip -n 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("category") {
				category, _ := cmd.Flags().GetString("category")
				opts.Category = &category
			}

			return c.withApp(func(a *app) error {
				req, err := a.codes.ResolveRequest(opts)
				if err != nil {
					return err
				}

				result, err := a.codes.GenerateCodes(cmd.Context(), req, count)
				if result != nil {
					for _, code := range result.Codes {
						fmt.Fprintln(cmd.OutOrStdout(), code.Code)
					}
				}
				if err != nil {
					return fmt.Errorf("生成兑换码失败: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Preset, "preset", "p", "", "预设名称 (general/warzone/fortnite/minecraft/valorant/amongus)")
	cmd.Flags().IntVarP(&opts.Length, "length", "l", 0, "长度 (4-50)，默认取预设或配置")
	cmd.Flags().StringVarP(&opts.Complexity, "complexity", "x", "", "复杂度 numeric/upper/full")
	cmd.Flags().String("category", "", "分类")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "生成数量")

	return cmd
}

func (c *cli) useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use CODE...",
		Short: "标记兑换码已使用",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				failed := 0
				for _, code := range args {
					ok, err := a.codes.UseCode(code)
					if err != nil {
						return err
					}
					if ok {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: 已标记为使用\n", code)
					} else {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "%s: 不存在或已使用\n", code)
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d 个兑换码未能标记", failed)
				}
				return nil
			})
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete CODE...",
		Short: "删除兑换码（需要 --yes）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNeedYes
			}
			return c.withApp(func(a *app) error {
				n, err := a.codes.DeleteCodes(args, yes)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "已删除 %d 个兑换码\n", n)
				if n < len(args) {
					return fmt.Errorf("%d 个兑换码不存在", len(args)-n)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "确认删除")
	return cmd
}

func (c *cli) clearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "删除全部兑换码（需要 --yes）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNeedYes
			}
			return c.withApp(func(a *app) error {
				n, err := a.codes.ClearCodes(yes)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "已删除 %d 个兑换码\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "确认清空")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出兑换码（新的在前）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				codes, err := a.codes.ListCodes(all)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tCATEGORY\tUSED")
				for _, code := range codes {
					used := "No"
					if code.Used {
						used = "Yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", code.Code, code.Category, used)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "包含已使用的兑换码")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "兑换码统计",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				stats, err := a.codes.GetCodeStats()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "总数: %d\n已使用: %d\n未使用: %d\n", stats.Total, stats.Used, stats.Unused)

				categories := make([]string, 0, len(stats.ByCategory))
				for category := range stats.ByCategory {
					categories = append(categories, category)
				}
				sort.Strings(categories)
				for _, category := range categories {
					fmt.Fprintf(out, "  %s: %d\n", category, stats.ByCategory[category])
				}
				return nil
			})
		},
	}
}
